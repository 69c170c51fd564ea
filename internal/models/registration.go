package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type RegistrationType string

const (
	RegistrationSolo  RegistrationType = "solo"
	RegistrationGroup RegistrationType = "group"
)

// RawAmount keeps the amount exactly as the client sent it. Browsers post
// it either as a JSON number or as a string, so parsing is left to the
// validator.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(b []byte) error {
	s, err := decodeScalar(b)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	*a = RawAmount(s)
	return nil
}

func (a RawAmount) String() string { return string(a) }

// PhoneNumber accepts the phone as a JSON string or a bare number.
type PhoneNumber string

func (p *PhoneNumber) UnmarshalJSON(b []byte) error {
	s, err := decodeScalar(b)
	if err != nil {
		return fmt.Errorf("buyer_phone: %w", err)
	}
	*p = PhoneNumber(s)
	return nil
}

func (p PhoneNumber) String() string { return string(p) }

// decodeScalar returns a JSON string or number as trimmed text; null
// decodes to "".
func decodeScalar(b []byte) (string, error) {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return "", nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return "", err
		}
		return strings.TrimSpace(str), nil
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") || s == "true" || s == "false" {
		return "", fmt.Errorf("expected a string or a number, got %s", s)
	}
	return s, nil
}

// RegistrationRequest is the body of POST /api/create-payment.
type RegistrationRequest struct {
	Amount             RawAmount        `json:"amount" form:"amount"`
	Purpose            string           `json:"purpose" form:"purpose" validate:"max=200"`
	BuyerName          string           `json:"buyer_name" form:"buyer_name" validate:"max=100"`
	BuyerEmail         string           `json:"buyer_email" form:"buyer_email" validate:"max=254"`
	BuyerPhone         PhoneNumber      `json:"buyer_phone" form:"buyer_phone"`
	RedirectURL        string           `json:"redirect_url,omitempty" form:"redirect_url" validate:"omitempty,max=2048,url"`
	RegistrationType   RegistrationType `json:"registration_type,omitempty" form:"registration_type" validate:"max=32"`
	ParticipantDetails map[string]any   `json:"participant_details,omitempty" form:"-" validate:"max=50"`
}

// Normalize trims the contact and amount fields. Form posts arrive
// untrimmed; JSON values are already trimmed on decode.
func (r *RegistrationRequest) Normalize() {
	r.Amount = RawAmount(strings.TrimSpace(string(r.Amount)))
	r.BuyerEmail = strings.TrimSpace(r.BuyerEmail)
	r.BuyerPhone = PhoneNumber(strings.TrimSpace(string(r.BuyerPhone)))
}

// RegistrationRecord is a saved registration submission. It serializes as
// a flat object: the submitted fields plus "id" and "timestamp".
type RegistrationRecord struct {
	ID        string
	Timestamp time.Time
	Fields    map[string]any
}

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func NewRegistrationRecord(id string, createdAt time.Time, fields map[string]any) *RegistrationRecord {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" || k == "timestamp" {
			continue
		}
		copied[k] = v
	}
	return &RegistrationRecord{
		ID:        id,
		Timestamp: createdAt.UTC().Truncate(time.Millisecond),
		Fields:    copied,
	}
}

// Email returns the first address-like field of the submission.
func (r *RegistrationRecord) Email() string {
	for _, key := range []string{"email", "buyer_email"} {
		if v, ok := r.Fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Name returns the registrant's display name, if any was submitted.
func (r *RegistrationRecord) Name() string {
	for _, key := range []string{"name", "buyer_name"} {
		if v, ok := r.Fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (r RegistrationRecord) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		flat[k] = v
	}
	flat["id"] = r.ID
	flat["timestamp"] = r.Timestamp.UTC().Format(timestampLayout)
	return json.Marshal(flat)
}

func (r *RegistrationRecord) UnmarshalJSON(b []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}

	switch id := flat["id"].(type) {
	case string:
		r.ID = id
	case nil:
		r.ID = ""
	default:
		r.ID = fmt.Sprint(id)
	}
	if ts, ok := flat["timestamp"].(string); ok {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return fmt.Errorf("registration %s: bad timestamp: %w", r.ID, err)
		}
		r.Timestamp = parsed
	}
	delete(flat, "id")
	delete(flat, "timestamp")
	r.Fields = flat
	return nil
}
