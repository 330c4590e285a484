package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Count)
	assert.Equal(t, 0, cfg.Skip)
	assert.Equal(t, 50, cfg.DelayRateLimit)
	assert.Equal(t, 20, cfg.DelayAuth)
	assert.Equal(t, 50, cfg.DelayRetrieve)
	assert.Equal(t, 10, cfg.DelayPersist)
	assert.Equal(t, 10, cfg.PersistConcurrency)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.Progress)
	assert.Equal(t, ColorAuto, cfg.Color)
	assert.Equal(t, SinkDelay, cfg.Sink)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PSTITLE_COUNT", "120")
	t.Setenv("PSTITLE_SKIP", "7")
	t.Setenv("PSTITLE_SINK", "s3")
	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minio")
	t.Setenv("MINIO_SECRET_KEY", "minio123")

	v, err := New()
	require.NoError(t, err)
	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Count)
	assert.Equal(t, 7, cfg.Skip)
	assert.Equal(t, "localhost:9000", cfg.S3.Endpoint)
	assert.Equal(t, "minio", cfg.S3.AccessKey)
	assert.Equal(t, "pstitle", cfg.S3.Bucket)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pstitle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
count: 12
skip: 4
shutdown_timeout: 2s
sink: file
output: out.jsonl
resume_from_output: true
`), 0o644))

	v, err := New()
	require.NoError(t, err)
	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Count)
	assert.Equal(t, 4, cfg.Skip)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, SinkFile, cfg.Sink)
	assert.Equal(t, "out.jsonl", cfg.Output)
	assert.True(t, cfg.ResumeFromOutput)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	v, err := New()
	require.NoError(t, err)

	_, err = Load(v, filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Count:              50,
			PersistConcurrency: 10,
			Color:              ColorAuto,
			Sink:               SinkDelay,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "skip equals count", mutate: func(c *Config) { c.Skip = 50 }},
		{name: "zero count", mutate: func(c *Config) { c.Count = 0 }},
		{name: "skip beyond count", mutate: func(c *Config) { c.Skip = 51 }, wantErr: true},
		{name: "negative skip", mutate: func(c *Config) { c.Skip = -1 }, wantErr: true},
		{name: "negative count", mutate: func(c *Config) { c.Count = -1 }, wantErr: true},
		{name: "negative delay", mutate: func(c *Config) { c.DelayAuth = -5 }, wantErr: true},
		{name: "no persist concurrency", mutate: func(c *Config) { c.PersistConcurrency = 0 }, wantErr: true},
		{name: "unknown color", mutate: func(c *Config) { c.Color = "sometimes" }, wantErr: true},
		{name: "unknown sink", mutate: func(c *Config) { c.Sink = "ftp" }, wantErr: true},
		{name: "file without output", mutate: func(c *Config) { c.Sink = SinkFile }, wantErr: true},
		{name: "file with output", mutate: func(c *Config) { c.Sink = SinkFile; c.Output = "a.jsonl" }},
		{name: "s3 without credentials", mutate: func(c *Config) { c.Sink = SinkS3 }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Sink = SinkPostgres }, wantErr: true},
		{name: "kafka without topic", mutate: func(c *Config) { c.Sink = SinkKafka; c.Kafka.Broker = "localhost:9092" }, wantErr: true},
		{name: "resume without stored records", mutate: func(c *Config) { c.ResumeFromOutput = true }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid), "expected ErrInvalid, got %v", err)
		})
	}
}

func TestMs(t *testing.T) {
	assert.Equal(t, 50*time.Millisecond, Ms(50))
	assert.Equal(t, time.Duration(0), Ms(0))
}
