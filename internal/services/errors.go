package services

import (
	"errors"
	"fmt"

	"registration-gateway/internal/models"
)

var (
	ErrOrderNotFound   = models.ErrOrderNotFound
	ErrInvalidWebhook  = errors.New("invalid webhook payload")
	ErrWebhookRejected = errors.New("webhook verification failed")
)

// ValidationError is a caller-input fault. It is always reported as 400.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StorageError is a local persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }
