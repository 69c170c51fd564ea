package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	"github.com/goccy/go-json"
)

// Transport error codes, named after the socket errors they stand for.
const (
	CodeConnReset    = "ECONNRESET"
	CodeHostNotFound = "ENOTFOUND"
	CodeTimedOut     = "ETIMEDOUT"
)

// TransportError is a failure below the application layer: the provider
// was never heard from.
type TransportError struct {
	Provider string
	Code     string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure (%s): %v", e.Provider, e.Code, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError is a rejection returned by the provider's API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Details    any
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: request rejected (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

// CallerFault reports whether the provider rejected data the caller
// supplied, as opposed to credentials, configuration or its own outage.
func (e *ProviderError) CallerFault() bool {
	switch {
	case e.StatusCode == http.StatusBadRequest, e.StatusCode == http.StatusUnprocessableEntity:
		return true
	case e.StatusCode >= 200 && e.StatusCode < 300:
		return true
	default:
		return false
	}
}

// classifyTransport wraps err in a TransportError when it is one of the
// recoverable network failures. Anything else is returned wrapped but
// unclassified.
func classifyTransport(provider string, err error) error {
	if code, ok := transportCode(err); ok {
		return &TransportError{Provider: provider, Code: code, Err: err}
	}
	return fmt.Errorf("%s: request failed: %w", provider, err)
}

func transportCode(err error) (string, bool) {
	var dnsErr *net.DNSError
	var netErr net.Error

	switch {
	case errors.As(err, &dnsErr):
		return CodeHostNotFound, true
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimedOut, true
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimedOut, true
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return CodeConnReset, true
	}
	return "", false
}

// decodeDetails returns the provider body as structured JSON when possible.
func decodeDetails(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	if len(body) == 0 {
		return nil
	}
	return string(body)
}
