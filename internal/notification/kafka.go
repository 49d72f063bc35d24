package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher pushes notification events onto a stream for out-of-process
// consumers (email workers, the UI push channel). Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
	Close() error
}

// KafkaPublisher publishes notification events with segmentio/kafka-go.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 2 * time.Second,
		Async:        false,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish marshals the event as JSON and writes it keyed by the recipient id.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		p.logger.Error("failed to publish notification event",
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("failed to publish notification event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
