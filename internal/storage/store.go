package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"registration-gateway/internal/config"
	"registration-gateway/internal/models"
	"registration-gateway/internal/utils"
)

const (
	DriverFile   = "file"
	DriverMemory = "memory"
)

// maxIDAttempts bounds how far an id is bumped past a collision.
const maxIDAttempts = 1000

var ErrIDExhausted = errors.New("no free registration id")

// Store persists registration submissions. Records are append-only.
type Store interface {
	Name() string
	Save(ctx context.Context, fields map[string]any) (*models.RegistrationRecord, error)
	List(ctx context.Context) ([]*models.RegistrationRecord, error)
}

// New opens the store selected by cfg.Driver.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFileStore(cfg.Dir), nil
	case DriverMemory:
		return NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// nextID returns the first id at or after now's millisecond that taken
// reports as free.
func nextID(now time.Time, taken func(id string) (bool, error)) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := utils.GenerateRegistrationID(now.Add(time.Duration(i) * time.Millisecond))
		used, err := taken(id)
		if err != nil {
			return "", err
		}
		if !used {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}
