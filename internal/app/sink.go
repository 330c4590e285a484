package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"pstitle/internal/config"
	"pstitle/internal/storage"
	"pstitle/pkg/kafkaclient"
)

// OpenSink connects the sink named in cfg. The caller closes it.
func OpenSink(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Sink, error) {
	switch cfg.Sink {
	case config.SinkDelay:
		return storage.DelaySink{Delay: config.Ms(cfg.DelayPersist)}, nil
	case config.SinkFile:
		sink, err := storage.NewFileSink(cfg.Output)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case config.SinkS3:
		sink, err := storage.NewS3Sink(ctx, storage.S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
		}, logger)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case config.SinkPostgres:
		sink, err := storage.NewPostgresSink(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case config.SinkKafka:
		producer, err := kafkaclient.NewProducer(cfg.Kafka.Topic, cfg.Kafka.Broker, logger)
		if err != nil {
			return nil, err
		}
		return storage.NewKafkaSink(producer), nil
	default:
		return nil, errors.AssertionFailedf("unvalidated sink %q", cfg.Sink)
	}
}
