package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"registration-gateway/internal/gateway"
	"registration-gateway/internal/models"
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockGateway) CreateOrder(ctx context.Context, req *gateway.OrderRequest) (*models.PaymentOrder, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, *gateway.OrderRequest) *models.PaymentOrder); ok {
		return fn(ctx, req), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentOrder), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Track(ctx context.Context, order *models.PaymentOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockLedger) Lookup(ctx context.Context, receipt string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, receipt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *MockLedger) Settle(ctx context.Context, ref string, status models.SettlementStatus) (*models.LedgerEntry, error) {
	args := m.Called(ctx, ref, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.CheckoutEvent
	err    error
}

func (p *recordingPublisher) Publish(event *models.CheckoutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type stubMailer struct {
	sent chan *models.RegistrationRecord
	err  error
}

func (m *stubMailer) SendConfirmation(_ context.Context, record *models.RegistrationRecord) error {
	m.sent <- record
	return m.err
}
