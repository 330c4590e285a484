package storage

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"pstitle/internal/models"
)

// publisher is implemented by *kafkaclient.Producer.
type publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// KafkaSink publishes one message per record, keyed by title number.
type KafkaSink struct {
	producer publisher
}

// NewKafkaSink wraps a producer.
func NewKafkaSink(p publisher) *KafkaSink {
	return &KafkaSink{producer: p}
}

// Persist implements Sink.
func (s *KafkaSink) Persist(ctx context.Context, rec models.PopulatedRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", rec.Record)
	}
	return s.producer.Publish(ctx, models.TitleNumber(rec.Record), value)
}

// Close flushes and closes the producer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
