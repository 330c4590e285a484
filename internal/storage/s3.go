package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"pstitle/internal/keys"
	"pstitle/internal/models"
)

// S3Config holds the connection details for an S3 compatible store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// objectStore is the subset of *minio.Client the sink uses. It allows the
// client to be replaced in tests.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// S3Sink stores each populated record as a JSON object.
type S3Sink struct {
	client objectStore
	bucket string
	logger *zap.Logger
}

// NewS3Sink connects to the object store and makes sure the bucket exists.
func NewS3Sink(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3Sink, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.WithHint(
			errors.New("missing S3 endpoint or credentials"),
			"set MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY",
		)
	}
	if cfg.Bucket == "" {
		return nil, errors.WithHint(errors.New("missing S3 bucket"), "set s3.bucket or MINIO_BUCKET")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create MinIO client")
	}

	s := newS3Sink(client, cfg.Bucket, logger)
	if err := s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	s.logger.Debug("connected to object store", zap.String("endpoint", cfg.Endpoint), zap.String("bucket", cfg.Bucket))
	return s, nil
}

func newS3Sink(client objectStore, bucket string, logger *zap.Logger) *S3Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Sink{client: client, bucket: bucket, logger: logger}
}

func (s *S3Sink) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "check bucket %s", s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return errors.Wrapf(err, "create bucket %s", s.bucket)
	}
	return nil
}

// Persist stores the record. An object that already exists is left alone.
func (s *S3Sink) Persist(ctx context.Context, rec models.PopulatedRecord) error {
	key := keys.Record(rec.Record)

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		s.logger.Debug("record already stored", zap.String("key", key))
		return nil
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return errors.Wrapf(err, "check existing object %s", key)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "marshal %s", rec.Record)
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrapf(err, "store object %s", key)
	}
	return nil
}

// FirstMissing implements Resumer by listing the stored record keys.
func (s *S3Sink) FirstMissing(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stored := make(map[int]struct{})
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: keys.Prefix, Recursive: true}) {
		if obj.Err != nil {
			return 0, errors.Wrapf(obj.Err, "list bucket %s", s.bucket)
		}
		rec, ok := keys.ParseRecord(obj.Key)
		if !ok {
			s.logger.Debug("ignoring unexpected object", zap.String("key", obj.Key))
			continue
		}
		stored[rec.Index] = struct{}{}
	}
	return firstMissing(stored), nil
}

// Close implements Sink. The MinIO client holds no resources to release.
func (s *S3Sink) Close() error { return nil }
