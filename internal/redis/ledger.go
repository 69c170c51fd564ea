package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"registration-gateway/internal/config"
	"registration-gateway/internal/models"
)

const (
	orderKeyPrefix = "order:"
	refKeyPrefix   = "order_ref:"
)

// Ledger stores issued orders in Redis with a TTL.
type Ledger struct {
	Client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewLedger(client *redis.Client, ttl time.Duration) *Ledger {
	return &Ledger{Client: client, ttl: ttl, now: time.Now}
}

// Connect dials Redis and checks it answers.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Ledger, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
	}
	return NewLedger(client, cfg.OrderTTL), nil
}

func orderKey(receipt string) string { return orderKeyPrefix + receipt }

func refKey(ref string) string { return refKeyPrefix + ref }

// Track records a new order as pending settlement.
func (l *Ledger) Track(ctx context.Context, order *models.PaymentOrder) error {
	entry := &models.LedgerEntry{
		Order:      *order,
		Settlement: models.SettlementPending,
		UpdatedAt:  l.now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", order.Receipt, err)
	}

	pipe := l.Client.TxPipeline()
	pipe.Set(ctx, orderKey(order.Receipt), data, l.ttl)
	if order.ProviderOrderID != "" {
		pipe.Set(ctx, refKey(order.ProviderOrderID), order.Receipt, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("track order %s: %w", order.Receipt, err)
	}
	return nil
}

func (l *Ledger) Lookup(ctx context.Context, receipt string) (*models.LedgerEntry, error) {
	data, err := l.Client.Get(ctx, orderKey(receipt)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup order %s: %w", receipt, err)
	}

	var entry models.LedgerEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", receipt, err)
	}
	return &entry, nil
}

// Settle resolves ref as a provider order id first and as a receipt
// second, then stores the new settlement keeping the remaining TTL.
func (l *Ledger) Settle(ctx context.Context, ref string, status models.SettlementStatus) (*models.LedgerEntry, error) {
	receipt, err := l.Client.Get(ctx, refKey(ref)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		receipt = ref
	case err != nil:
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	entry, err := l.Lookup(ctx, receipt)
	if err != nil {
		return nil, err
	}
	entry.Settlement = status
	entry.UpdatedAt = l.now().UTC()

	data, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode order %s: %w", receipt, err)
	}
	if err := l.Client.SetArgs(ctx, orderKey(receipt), data, redis.SetArgs{KeepTTL: true}).Err(); err != nil {
		return nil, fmt.Errorf("settle order %s: %w", receipt, err)
	}
	return entry, nil
}

func (l *Ledger) Close() error {
	return l.Client.Close()
}
