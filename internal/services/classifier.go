package services

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"registration-gateway/internal/gateway"
)

// Outcome is what the checkout flow does with a gateway failure.
type Outcome int

const (
	// OutcomeFallback answers with a static checkout link.
	OutcomeFallback Outcome = iota
	// OutcomeCallerFault answers 400 with the provider's detail.
	OutcomeCallerFault
	// OutcomeServerFault answers 500.
	OutcomeServerFault
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFallback:
		return "fallback"
	case OutcomeCallerFault:
		return "rejected"
	default:
		return "error"
	}
}

// Classify maps a gateway failure to an outcome. Only transport failures
// fall back; provider rejections surface as errors.
func Classify(err error) Outcome {
	var te *gateway.TransportError
	if errors.As(err, &te) {
		return OutcomeFallback
	}
	var pe *gateway.ProviderError
	if errors.As(err, &pe) && pe.CallerFault() {
		return OutcomeCallerFault
	}
	return OutcomeServerFault
}

// StatusFor returns the HTTP status for a non-fallback outcome.
func (o Outcome) StatusFor() int {
	if o == OutcomeCallerFault {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// FallbackLinker builds a manual checkout URL that needs no provider call.
type FallbackLinker struct {
	base string
}

func NewFallbackLinker(base string) *FallbackLinker {
	return &FallbackLinker{base: base}
}

// Link prefills the buyer's name, email and the amount on the static page.
func (f *FallbackLinker) Link(buyerName, buyerEmail, amount string) string {
	q := url.Values{}
	q.Set("data_name", buyerName)
	q.Set("data_email", buyerEmail)
	q.Set("data_amount", amount)

	u, err := url.Parse(f.base)
	if err != nil {
		sep := "?"
		if strings.Contains(f.base, "?") {
			sep = "&"
		}
		return f.base + sep + q.Encode()
	}
	existing := u.Query()
	for k, v := range q {
		existing[k] = v
	}
	u.RawQuery = existing.Encode()
	return u.String()
}
