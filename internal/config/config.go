// Package config defines the run configuration and loads it with viper from
// flags, an optional config file and the environment.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment variable viper looks up.
	EnvPrefix = "PSTITLE"
	// DefaultShutdownTimeout bounds the wait for in-flight persists once a
	// run stops early.
	DefaultShutdownTimeout = 5 * time.Second
)

// Sink names.
const (
	SinkDelay    = "delay"
	SinkFile     = "file"
	SinkS3       = "s3"
	SinkPostgres = "postgres"
	SinkKafka    = "kafka"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrInvalid marks configuration that cannot be used for a run.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete run configuration. Delays are in milliseconds.
type Config struct {
	Count              int           `mapstructure:"count"`
	Skip               int           `mapstructure:"skip"`
	DelayRateLimit     int           `mapstructure:"delay_rate_limit"`
	DelayAuth          int           `mapstructure:"delay_auth"`
	DelayRetrieve      int           `mapstructure:"delay_retrieve"`
	DelayPersist       int           `mapstructure:"delay_persist"`
	PersistConcurrency int           `mapstructure:"persist_concurrency"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	ResumeFromOutput   bool          `mapstructure:"resume_from_output"`

	Progress bool   `mapstructure:"progress"`
	Color    string `mapstructure:"color"`
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	APIToken string `mapstructure:"api_token"`

	Sink     string         `mapstructure:"sink"`
	Output   string         `mapstructure:"output"`
	S3       S3Config       `mapstructure:"s3"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

// S3Config configures the object storage sink.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// PostgresConfig configures the database sink.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// KafkaConfig configures the event stream sink.
type KafkaConfig struct {
	Broker string `mapstructure:"broker"`
	Topic  string `mapstructure:"topic"`
}

// Ms converts a millisecond setting to a duration.
func Ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("count", 50)
	v.SetDefault("skip", 0)
	v.SetDefault("delay_rate_limit", 50)
	v.SetDefault("delay_auth", 20)
	v.SetDefault("delay_retrieve", 50)
	v.SetDefault("delay_persist", 10)
	v.SetDefault("persist_concurrency", 10)
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("resume_from_output", false)

	v.SetDefault("progress", true)
	v.SetDefault("color", ColorAuto)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_json", false)
	v.SetDefault("api_token", "")

	v.SetDefault("sink", SinkDelay)
	v.SetDefault("output", "records.jsonl")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.bucket", "pstitle")
	v.SetDefault("s3.region", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.topic", "populated-records")
}

// BindEnv makes viper read PSTITLE_* variables, plus the unprefixed names
// the storage services are usually configured with.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	aliases := map[string]string{
		"s3.endpoint":   "MINIO_ENDPOINT",
		"s3.access_key": "MINIO_ACCESS_KEY",
		"s3.secret_key": "MINIO_SECRET_KEY",
		"s3.bucket":     "MINIO_BUCKET",
		"postgres.dsn":  "DATABASE_DSN",
		"kafka.broker":  "KAFKA_BROKER",
		"kafka.topic":   "KAFKA_TOPIC",
	}
	for key, alias := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, alias); err != nil {
			return errors.Wrapf(err, "bind %s", key)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment binding set up.
func New() (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Load reads the optional config file and decodes the settings into a
// validated Config.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WithHint(
				errors.Wrapf(err, "read config file %s", file),
				"config files may be YAML, TOML or JSON",
			)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that makes a run impossible.
func (c *Config) Validate() error {
	switch {
	case c.Count < 0:
		return invalid(errors.Newf("count must not be negative, got %d", c.Count), "pass --count 0 or more")
	case c.Skip < 0 || c.Skip > c.Count:
		return invalid(errors.Newf("skip %d outside 0..%d", c.Skip, c.Count), "--skip must not exceed --count")
	case c.DelayRateLimit < 0, c.DelayAuth < 0, c.DelayRetrieve < 0, c.DelayPersist < 0:
		return invalid(errors.New("delays must not be negative"), "delays are given in milliseconds")
	case c.PersistConcurrency < 1:
		return invalid(errors.Newf("persist_concurrency must be at least 1, got %d", c.PersistConcurrency), "")
	case c.ShutdownTimeout < 0:
		return invalid(errors.Newf("shutdown_timeout must not be negative, got %s", c.ShutdownTimeout), "")
	}

	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return invalid(errors.Newf("unknown color mode %q", c.Color), "use auto, always or never")
	}

	switch c.Sink {
	case SinkDelay:
	case SinkFile:
		if c.Output == "" {
			return invalid(errors.New("file sink needs an output path"), "set --output")
		}
	case SinkS3:
		if c.S3.Endpoint == "" || c.S3.AccessKey == "" || c.S3.SecretKey == "" || c.S3.Bucket == "" {
			return invalid(errors.New("s3 sink is missing connection settings"),
				"set MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET")
		}
	case SinkPostgres:
		if c.Postgres.DSN == "" {
			return invalid(errors.New("postgres sink needs a DSN"), "set DATABASE_DSN or postgres.dsn")
		}
	case SinkKafka:
		if c.Kafka.Broker == "" || c.Kafka.Topic == "" {
			return invalid(errors.New("kafka sink needs a broker and a topic"), "set KAFKA_BROKER and KAFKA_TOPIC")
		}
	default:
		return invalid(errors.Newf("unknown sink %q", c.Sink), "use delay, file, s3, postgres or kafka")
	}

	if c.ResumeFromOutput && (c.Sink == SinkDelay || c.Sink == SinkKafka) {
		return invalid(errors.New("resume_from_output needs a sink that keeps records"), "choose the file, s3 or postgres sink")
	}
	return nil
}

func invalid(err error, hint string) error {
	err = errors.Mark(err, ErrInvalid)
	if hint != "" {
		err = errors.WithHint(err, hint)
	}
	return err
}
