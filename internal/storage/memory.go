package storage

import (
	"context"
	"sync"
	"time"

	"registration-gateway/internal/models"
)

type InMemoryStore struct {
	records []*models.RegistrationRecord
	ids     map[string]struct{}
	mutex   sync.RWMutex
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		ids: make(map[string]struct{}),
		now: time.Now,
	}
}

func (s *InMemoryStore) Name() string { return DriverMemory }

func (s *InMemoryStore) Save(ctx context.Context, fields map[string]any) (*models.RegistrationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	id, err := nextID(now, func(id string) (bool, error) {
		_, used := s.ids[id]
		return used, nil
	})
	if err != nil {
		return nil, err
	}

	record := models.NewRegistrationRecord(id, now, fields)
	s.ids[id] = struct{}{}
	s.records = append(s.records, record)
	return record, nil
}

func (s *InMemoryStore) List(ctx context.Context) ([]*models.RegistrationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	records := make([]*models.RegistrationRecord, len(s.records))
	copy(records, s.records)
	return records, nil
}
