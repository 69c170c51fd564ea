package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

const (
	TopicCheckoutCreated  = "checkout-created"
	TopicCheckoutFallback = "checkout-fallback"
	TopicCheckoutFailed   = "checkout-failed"
	TopicRegistrations    = "registrations"
	TopicWebhooks         = "payment-webhooks"
	TopicDefault          = "checkout-events"
)

var topicByEvent = map[string]string{
	models.EventPaymentCreated:    TopicCheckoutCreated,
	models.EventPaymentFallback:   TopicCheckoutFallback,
	models.EventPaymentFailed:     TopicCheckoutFailed,
	models.EventRegistrationSaved: TopicRegistrations,
	models.EventWebhookReceived:   TopicWebhooks,
}

// TopicFor returns the topic an event type is published to.
func TopicFor(eventType string) string {
	if topic, ok := topicByEvent[eventType]; ok {
		return topic
	}
	return TopicDefault
}

type Producer struct {
	producer sarama.SyncProducer
	mockMode bool
	log      *logger.Logger
}

// NewProducer connects to the brokers. In mock mode nothing is dialled and
// events are only logged.
func NewProducer(brokers []string, mockMode bool, log *logger.Logger) (*Producer, error) {
	if mockMode {
		log.LogKafka("MOCK_MODE", "producer", "Running in mock mode - no actual Kafka connection")
		return &Producer{mockMode: true, log: log}, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	log.LogKafka("CONNECTED", "producer", fmt.Sprintf("Connected to Kafka brokers: %v", brokers))
	return NewProducerWith(producer, log), nil
}

// NewProducerWith wraps an existing sync producer.
func NewProducerWith(producer sarama.SyncProducer, log *logger.Logger) *Producer {
	return &Producer{producer: producer, log: log}
}

func (p *Producer) MockMode() bool { return p.mockMode }

func (p *Producer) Publish(event *models.CheckoutEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := TopicFor(event.Type)

	if p.mockMode {
		p.log.LogKafka("MOCK_PUBLISH", topic, fmt.Sprintf("Mock publishing event: %s for %s", event.Type, event.Key))
		p.log.Debug("KAFKA", string(data))
		return nil
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.Key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", topic, err)
	}

	p.log.LogKafka("PUBLISHED", topic, fmt.Sprintf("Message sent to partition %d at offset %d for %s", partition, offset, event.Key))
	return nil
}

func (p *Producer) Close() error {
	if p.mockMode {
		p.log.LogKafka("MOCK_CLOSE", "producer", "Mock producer closed")
		return nil
	}

	if p.producer != nil {
		p.log.LogKafka("CLOSING", "producer", "Closing Kafka producer connection")
		return p.producer.Close()
	}
	return nil
}
