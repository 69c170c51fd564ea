package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

// EventHandler processes one decoded event. A returned error leaves the
// message unmarked.
type EventHandler func(ctx context.Context, event *models.CheckoutEvent) error

// Consumer reads webhook events for reconciliation.
type Consumer struct {
	consumer sarama.ConsumerGroup
	topics   []string
	log      *logger.Logger
}

func NewConsumer(brokers []string, groupID string, log *logger.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	log.LogKafka("SUBSCRIBED", TopicWebhooks, fmt.Sprintf("Consumer group %s joined", groupID))
	return &Consumer{
		consumer: consumer,
		topics:   []string{TopicWebhooks},
		log:      log,
	}, nil
}

// Consume blocks until ctx is cancelled or the group fails.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	consumerHandler := &WebhookConsumerHandler{Handler: handler, Log: c.log}

	for {
		if err := c.consumer.Consume(ctx, c.topics, consumerHandler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error consuming messages: %v", err))
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// WebhookConsumerHandler adapts an EventHandler to sarama's group handler.
type WebhookConsumerHandler struct {
	Handler EventHandler
	Log     *logger.Logger
}

func (h *WebhookConsumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *WebhookConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *WebhookConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var event models.CheckoutEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			h.Log.Error("KAFKA", fmt.Sprintf("Failed to unmarshal message at offset %d: %v", message.Offset, err))
			// Undecodable messages are skipped for good.
			session.MarkMessage(message, "")
			continue
		}

		if err := h.Handler(session.Context(), &event); err != nil {
			h.Log.Warn("KAFKA", fmt.Sprintf("Failed to handle %s for %s: %v", event.Type, event.Key, err))
			continue
		}

		session.MarkMessage(message, "")
	}

	return nil
}
