// Package kafka carries platform events between the API server and the
// worker: market alerts, trained models and index updates.
package kafka

import (
	"context"
	"time"
)

// Message is a consumed record handed to subscribers.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// ProducerMessage is an outgoing record.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// MessageHandler processes one consumed record.  A non-nil error triggers the
// consumer's retry and dead letter handling.
type MessageHandler func(ctx context.Context, msg *Message) error

// BatchPublishResult reports per-message outcomes of a batch publish.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// BatchItemError pins a failure to its position in the batch.  Index is -1
// when the whole write failed at once.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// TopicConfig declares a topic for the topic manager.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	MaxMessageBytes   int
	Configs           map[string]string
}
