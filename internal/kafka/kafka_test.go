package kafka

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"registration-gateway/internal/logger"
	"registration-gateway/internal/models"
)

func testEvent(eventType string) *models.CheckoutEvent {
	return &models.CheckoutEvent{
		ID:   "evt_test",
		Type: eventType,
		Key:  "rcpt_1_abcdef12",
		Order: &models.PaymentOrder{
			Provider: "razorpay",
			Receipt:  "rcpt_1_abcdef12",
			Amount:   decimal.NewFromInt(300),
			Currency: models.CurrencyINR,
			Status:   models.OrderCreated,
		},
		Timestamp: time.Now().UTC(),
	}
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, TopicCheckoutCreated, TopicFor(models.EventPaymentCreated))
	assert.Equal(t, TopicCheckoutFallback, TopicFor(models.EventPaymentFallback))
	assert.Equal(t, TopicCheckoutFailed, TopicFor(models.EventPaymentFailed))
	assert.Equal(t, TopicRegistrations, TopicFor(models.EventRegistrationSaved))
	assert.Equal(t, TopicWebhooks, TopicFor(models.EventWebhookReceived))
	assert.Equal(t, TopicDefault, TopicFor("something.else"))
}

func TestProducerPublishesEncodedEvent(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var decoded models.CheckoutEvent
		if err := json.Unmarshal(val, &decoded); err != nil {
			return err
		}
		if decoded.Order == nil || decoded.Order.Receipt != "rcpt_1_abcdef12" {
			return errors.New("receipt missing from payload")
		}
		return nil
	})

	p := NewProducerWith(sp, logger.Discard())
	require.NoError(t, p.Publish(testEvent(models.EventPaymentCreated)))
	require.NoError(t, p.Close())
}

func TestProducerSurfacesSendFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducerWith(sp, logger.Discard())
	err := p.Publish(testEvent(models.EventPaymentFailed))
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Contains(t, err.Error(), TopicCheckoutFailed)
	require.NoError(t, p.Close())
}

func TestMockProducerOnlyLogs(t *testing.T) {
	p, err := NewProducer(nil, true, logger.Discard())
	require.NoError(t, err)
	assert.True(t, p.MockMode())
	assert.NoError(t, p.Publish(testEvent(models.EventWebhookReceived)))
	assert.NoError(t, p.Close())
}

func TestWebhookConsumerHandler(t *testing.T) {
	event := &models.CheckoutEvent{
		Type: models.EventWebhookReceived,
		Key:  "MOJO123",
		Webhook: &models.WebhookPayload{
			Fields: map[string]any{"payment_request_id": "MOJO123", "status": "Credit"},
		},
	}
	good, _ := json.Marshal(event)
	failing, _ := json.Marshal(&models.CheckoutEvent{Type: models.EventWebhookReceived, Key: "boom"})

	msgChan := make(chan *sarama.ConsumerMessage, 3)
	msgChan <- &sarama.ConsumerMessage{Topic: TopicWebhooks, Offset: 0, Value: good}
	msgChan <- &sarama.ConsumerMessage{Topic: TopicWebhooks, Offset: 1, Value: []byte("{broken")}
	msgChan <- &sarama.ConsumerMessage{Topic: TopicWebhooks, Offset: 2, Value: failing}
	close(msgChan)

	session := &MockConsumerGroupSession{}
	session.On("Context").Return(context.Background())
	session.On("MarkMessage", mock.Anything, "").Return()

	claim := &MockConsumerGroupClaim{}
	claim.On("Messages").Return(msgChan)

	var handled []string
	h := &WebhookConsumerHandler{
		Log: logger.Discard(),
		Handler: func(_ context.Context, ev *models.CheckoutEvent) error {
			handled = append(handled, ev.Key)
			if ev.Key == "boom" {
				return errors.New("ledger unavailable")
			}
			return nil
		},
	}

	require.NoError(t, h.ConsumeClaim(session, claim))

	assert.Equal(t, []string{"MOJO123", "boom"}, handled)
	// The decoded message and the undecodable one are marked; the failed one is not.
	session.AssertNumberOfCalls(t, "MarkMessage", 2)
	claim.AssertExpectations(t)
}

// TestConsumerIntegration needs a running broker and skips otherwise.
func TestConsumerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:29092"
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Net.DialTimeout = 5 * time.Second
	raw, err := sarama.NewSyncProducer([]string{brokers}, config)
	if err != nil {
		t.Skip("Skipping test because Kafka is not available:", err)
		return
	}
	producer := NewProducerWith(raw, logger.Discard())
	defer producer.Close()

	consumer, err := NewConsumer([]string{brokers}, "registration-gateway-test-"+time.Now().Format("20060102150405"), logger.Discard())
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := "rcpt_it_" + time.Now().Format("150405.000")
	received := make(chan struct{}, 1)
	go func() {
		_ = consumer.Consume(ctx, func(_ context.Context, ev *models.CheckoutEvent) error {
			if ev.Key == key {
				received <- struct{}{}
			}
			return nil
		})
	}()

	// Give the group time to join before publishing with OffsetNewest.
	time.Sleep(3 * time.Second)
	require.NoError(t, producer.Publish(&models.CheckoutEvent{Type: models.EventWebhookReceived, Key: key}))

	select {
	case <-received:
	case <-time.After(20 * time.Second):
		t.Fatalf("Timeout waiting for webhook event %s", key)
	}
}

type MockConsumerGroupSession struct {
	mock.Mock
}

func (m *MockConsumerGroupSession) Claims() map[string][]int32 {
	args := m.Called()
	return args.Get(0).(map[string][]int32)
}

func (m *MockConsumerGroupSession) MemberID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConsumerGroupSession) GenerationID() int32 {
	args := m.Called()
	return int32(args.Int(0))
}

func (m *MockConsumerGroupSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
	m.Called(topic, partition, offset, metadata)
}

func (m *MockConsumerGroupSession) Commit() {
	m.Called()
}

func (m *MockConsumerGroupSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
	m.Called(topic, partition, offset, metadata)
}

func (m *MockConsumerGroupSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	m.Called(msg, metadata)
}

func (m *MockConsumerGroupSession) Context() context.Context {
	args := m.Called()
	return args.Get(0).(context.Context)
}

type MockConsumerGroupClaim struct {
	mock.Mock
}

func (m *MockConsumerGroupClaim) Topic() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConsumerGroupClaim) Partition() int32 {
	args := m.Called()
	return int32(args.Int(0))
}

func (m *MockConsumerGroupClaim) InitialOffset() int64 {
	args := m.Called()
	return int64(args.Int(0))
}

func (m *MockConsumerGroupClaim) HighWaterMarkOffset() int64 {
	args := m.Called()
	return int64(args.Int(0))
}

func (m *MockConsumerGroupClaim) Messages() <-chan *sarama.ConsumerMessage {
	args := m.Called()
	return args.Get(0).(chan *sarama.ConsumerMessage)
}
