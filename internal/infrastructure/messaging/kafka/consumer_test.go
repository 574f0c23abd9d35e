package kafka

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/pkg/errors"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

type mockReader struct {
	messages  chan kafkago.Message
	committed []kafkago.Message
}

func (r *mockReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case m, ok := <-r.messages:
		if !ok {
			return kafkago.Message{}, io.EOF
		}
		return m, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (r *mockReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *mockReader) Close() error { return nil }

func (r *mockReader) Stats() kafkago.ReaderStats { return kafkago.ReaderStats{} }

func newTestConsumer(r ReaderInterface, retry RetryConfig) *Consumer {
	return &Consumer{
		reader:   r,
		config:   ConsumerConfig{Brokers: []string{"localhost:9092"}, GroupID: "test", RetryConfig: retry},
		logger:   logging.NewNopLogger(),
		handlers: make(map[string]MessageHandler),
		metrics:  &ConsumerMetrics{},
	}
}

func TestConsumerDispatchesToHandler(t *testing.T) {
	reader := &mockReader{messages: make(chan kafkago.Message, 1)}
	consumer := newTestConsumer(reader, RetryConfig{})

	var handled atomic.Int64
	done := make(chan *Message, 1)
	consumer.Subscribe(TopicMarketAlert, func(_ context.Context, msg *Message) error {
		handled.Add(1)
		done <- msg
		return nil
	})

	reader.messages <- kafkago.Message{
		Topic: TopicMarketAlert,
		Key:   []byte("prod_001"),
		Value: []byte(`{"x":1}`),
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeAlertRaised)},
		},
	}

	require.NoError(t, consumer.Start(context.Background()))
	defer consumer.Close()

	select {
	case msg := <-done:
		assert.Equal(t, TopicMarketAlert, msg.Topic)
		assert.Equal(t, EventTypeAlertRaised, msg.Headers["event_type"])
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
	assert.Eventually(t, func() bool {
		return consumer.metrics.MessagesProcessed.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumerRetriesThenGivesUp(t *testing.T) {
	reader := &mockReader{messages: make(chan kafkago.Message, 1)}
	consumer := newTestConsumer(reader, RetryConfig{
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	var attempts atomic.Int64
	consumer.Subscribe(TopicModelTrained, func(context.Context, *Message) error {
		attempts.Add(1)
		return assert.AnError
	})

	reader.messages <- kafkago.Message{Topic: TopicModelTrained, Value: []byte("x")}

	require.NoError(t, consumer.Start(context.Background()))
	defer consumer.Close()

	assert.Eventually(t, func() bool {
		return consumer.metrics.MessagesFailed.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	// First attempt plus two retries.
	assert.Equal(t, int64(3), attempts.Load())
	// The offset still advances past the failed record.
	assert.NotEmpty(t, reader.committed)
}

func TestConsumerCommitsUnhandledTopics(t *testing.T) {
	reader := &mockReader{messages: make(chan kafkago.Message, 1)}
	consumer := newTestConsumer(reader, RetryConfig{})

	reader.messages <- kafkago.Message{Topic: "unknown.topic", Value: []byte("x")}

	require.NoError(t, consumer.Start(context.Background()))
	defer consumer.Close()

	assert.Eventually(t, func() bool {
		return len(reader.committed) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, consumer.metrics.MessagesProcessed.Load())
}

func TestConsumerStartTwice(t *testing.T) {
	reader := &mockReader{messages: make(chan kafkago.Message)}
	consumer := newTestConsumer(reader, RetryConfig{})

	require.NoError(t, consumer.Start(context.Background()))
	defer consumer.Close()

	assert.ErrorIs(t, consumer.Start(context.Background()), ErrAlreadyRunning)
}

func TestValidateConsumerConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  ConsumerConfig
		ok   bool
	}{
		{"valid", ConsumerConfig{Brokers: []string{"b"}, GroupID: "g"}, true},
		{"no brokers", ConsumerConfig{GroupID: "g"}, false},
		{"no group", ConsumerConfig{Brokers: []string{"b"}}, false},
		{"bad offset reset", ConsumerConfig{Brokers: []string{"b"}, GroupID: "g", AutoOffsetReset: "middle"}, false},
		{"sasl without mechanism", ConsumerConfig{Brokers: []string{"b"}, GroupID: "g", SASLEnabled: true}, false},
		{"tls without cert", ConsumerConfig{Brokers: []string{"b"}, GroupID: "g", TLSEnabled: true}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConsumerConfig(tc.cfg)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
			}
		})
	}
}

func TestAlertPublisherPublish(t *testing.T) {
	w := &mockWriter{}
	publisher := NewAlertPublisher(newTestProducer(w), logging.NewNopLogger())

	alerts := []market.Alert{
		{ID: "alert_prod_001_20260615", Product: "prod_001", Type: market.AlertPriceSpike, Severity: common.SeverityHigh},
		{ID: "alert_prod_002_20260615", Product: "prod_002", Type: market.AlertPriceDrop, Severity: common.SeverityMedium},
	}
	require.NoError(t, publisher.Publish(context.Background(), alerts))
	require.Len(t, w.written, 2)
	assert.Equal(t, TopicMarketAlert, w.written[0].Topic)
	assert.Equal(t, []byte("prod_001"), w.written[0].Key)

	// Round trip the first record back into an alert.
	decoded, err := DecodeAlert(&Message{Value: w.written[0].Value})
	require.NoError(t, err)
	assert.Equal(t, alerts[0].ID, decoded.ID)
	assert.Equal(t, alerts[0].Product, decoded.Product)
}

func TestAlertPublisherEmpty(t *testing.T) {
	w := &mockWriter{}
	publisher := NewAlertPublisher(newTestProducer(w), logging.NewNopLogger())

	require.NoError(t, publisher.Publish(context.Background(), nil))
	assert.Empty(t, w.written)
}

func TestAlertPublisherFailure(t *testing.T) {
	w := &mockWriter{writeFn: func(context.Context, ...kafkago.Message) error { return assert.AnError }}
	publisher := NewAlertPublisher(newTestProducer(w), logging.NewNopLogger())

	err := publisher.Publish(context.Background(), []market.Alert{{ID: "a", Product: "p"}})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeAlertPublishFailed))
}
