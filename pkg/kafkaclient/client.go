package kafkaclient

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaWriter defines the interface for a Kafka message writer.
// This allows for easy mocking in unit tests.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes messages to a single topic. It is safe for concurrent
// use; kafka-go batches concurrent writes internally.
type Producer struct {
	writer KafkaWriter
	topic  string
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewProducer creates a Producer for topic on broker.
func NewProducer(topic, broker string, logger *zap.Logger) (*Producer, error) {
	if topic == "" || broker == "" {
		return nil, errors.WithHint(errors.New("missing Kafka broker or topic"), "set KAFKA_BROKER and KAFKA_TOPIC")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		// Records are written one at a time by several goroutines; flush
		// small batches quickly instead of waiting for the default second.
		BatchTimeout: 10 * time.Millisecond,
	}
	return newProducer(writer, topic, logger), nil
}

func newProducer(w KafkaWriter, topic string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{writer: w, topic: topic, logger: logger}
}

// Publish writes one message keyed by key.
func (p *Producer) Publish(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{Key: []byte(key), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "publish %s to %s", key, p.topic)
	}
	p.logger.Debug("message published", zap.String("topic", p.topic), zap.String("key", key))
	return nil
}

// Close flushes pending messages and closes the writer. Only the first call
// has an effect.
func (p *Producer) Close() error {
	p.closeOnce.Do(func() {
		p.logger.Debug("closing Kafka producer", zap.String("topic", p.topic))
		p.closeErr = p.writer.Close()
	})
	return p.closeErr
}
