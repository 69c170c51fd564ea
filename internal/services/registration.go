package services

import (
	"context"
	"fmt"
	"time"

	"registration-gateway/internal/logger"
	"registration-gateway/internal/metrics"
	"registration-gateway/internal/models"
	"registration-gateway/internal/storage"
)

// mailTimeout bounds a background confirmation send.
const mailTimeout = 30 * time.Second

type RegistrationService struct {
	store   storage.Store
	events  EventPublisher
	mailer  Mailer
	metrics *metrics.Metrics
	log     *logger.Logger
}

// NewRegistrationService wires the store. mailer may be nil when SMTP is
// not configured.
func NewRegistrationService(store storage.Store, events EventPublisher, mailer Mailer, m *metrics.Metrics, log *logger.Logger) *RegistrationService {
	if log == nil {
		log = logger.Discard()
	}
	return &RegistrationService{store: store, events: events, mailer: mailer, metrics: m, log: log}
}

// Save persists a submission and returns the stored record. Storage
// failures come back as *StorageError.
func (s *RegistrationService) Save(ctx context.Context, fields map[string]any) (*models.RegistrationRecord, error) {
	record, err := s.store.Save(ctx, fields)
	if err != nil {
		s.metrics.ObserveRegistration("failed")
		s.log.LogDatabase("SAVE_FAILED", s.store.Name(), err.Error())
		return nil, &StorageError{Op: "save", Err: err}
	}
	s.metrics.ObserveRegistration("saved")
	s.log.LogDatabase("SAVED", s.store.Name(), fmt.Sprintf("Registration %s saved", record.ID))

	publishEvent(s.events, s.metrics, s.log, &models.CheckoutEvent{
		Type:         models.EventRegistrationSaved,
		Key:          record.ID,
		Registration: record,
	})

	if s.mailer != nil && record.Email() != "" {
		go s.confirm(record)
	}
	return record, nil
}

func (s *RegistrationService) confirm(record *models.RegistrationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
	defer cancel()
	if err := s.mailer.SendConfirmation(ctx, record); err != nil {
		s.log.Error("MAIL", fmt.Sprintf("Confirmation for registration %s failed: %v", record.ID, err))
		return
	}
	s.log.Info("MAIL", fmt.Sprintf("Confirmation sent for registration %s", record.ID))
}

func (s *RegistrationService) List(ctx context.Context) ([]*models.RegistrationRecord, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		s.log.LogDatabase("LIST_FAILED", s.store.Name(), err.Error())
		return nil, &StorageError{Op: "list", Err: err}
	}
	return records, nil
}
