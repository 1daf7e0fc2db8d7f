// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Kernel, Indexer, Gateway, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Kernel   KernelConfig   `yaml:"kernel"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Admin    AdminConfig    `yaml:"admin"`

	// Fields is the ordered set of record field names the source store
	// indexes and the ingestion service accepts.
	Fields []string `yaml:"fields"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RecordIngest    string `yaml:"recordIngest"`
	IndexComplete   string `yaml:"indexComplete"`
	CacheInvalidate string `yaml:"cacheInvalidate"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig tunes the searcher-side indexer consumer: how it bulk-loads
// internal/source.Store from PostgreSQL on startup before switching to
// tailing the record-ingest Kafka topic for incremental updates.
type IndexerConfig struct {
	BackfillBatchSize int           `yaml:"backfillBatchSize"`
	BackfillTimeout   time.Duration `yaml:"backfillTimeout"`
	FlushInterval     time.Duration `yaml:"flushInterval"`
}

// KernelConfig controls the matching kernel's thresholds and bonuses
// (internal/kernel/kopts.Options) plus the searcher's result-page limits.
// See SPEC_FULL.md §7.1 for the meaning of each field.
type KernelConfig struct {
	MinimumMatch         float64 `yaml:"minimumMatch"`
	ThreshInclude        float64 `yaml:"threshInclude"`
	ThreshRelativeToBest float64 `yaml:"threshRelativeToBest"`
	FieldGoodEnough      float64 `yaml:"fieldGoodEnough"`
	BonusMatchStart      float64 `yaml:"bonusMatchStart"`
	BonusTokenOrder      float64 `yaml:"bonusTokenOrder"`
	BonusPositionDecay   float64 `yaml:"bonusPositionDecay"`
	ScorePerToken        bool    `yaml:"scorePerToken"`
	ScoreTestFused       bool    `yaml:"scoreTestFused"`
	ScoreRound           float64 `yaml:"scoreRound"`
	TokenQueryMinLength  int     `yaml:"tokenQueryMinLength"`
	TokenFieldMinLength  int     `yaml:"tokenFieldMinLength"`
	TokenQueryMaxLength  int     `yaml:"tokenQueryMaxLength"`
	TokenFieldMaxLength  int     `yaml:"tokenFieldMaxLength"`
	TokenMinRelSize      float64 `yaml:"tokenMinRelSize"`
	TokenMaxRelSize      float64 `yaml:"tokenMaxRelSize"`
	DefaultLimit         int     `yaml:"defaultLimit"`
	MaxResults           int     `yaml:"maxResults"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls distributed tracing (sample rate, endpoint).
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// AnalyticsConfig tunes the standalone analytics service's periodic
// snapshot persistence to PostgreSQL.
type AnalyticsConfig struct {
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	SnapshotHistory  int           `yaml:"snapshotHistory"`
}

// AdminConfig controls the searcher's internal admin RPC listener
// (pkg/grpc, a JSON-over-TCP protocol separate from the public HTTP
// API), used by operators to fetch store stats or push a single
// record outside the normal Kafka tail.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// GatewayConfig holds the API gateway port and upstream service URLs.
type GatewayConfig struct {
	Port         int    `yaml:"port"`
	IngestionURL string `yaml:"ingestionUrl"`
	SearcherURL  string `yaml:"searcherUrl"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "fuzzysearch",
			User:            "fuzzysearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "fuzzysearch-group",
			Topics: KafkaTopics{
				RecordIngest:    "record-ingest",
				IndexComplete:   "index.complete",
				CacheInvalidate: "cache-invalidate",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexer: IndexerConfig{
			BackfillBatchSize: 500,
			BackfillTimeout:   2 * time.Minute,
			FlushInterval:     5 * time.Second,
		},
		Kernel: KernelConfig{
			MinimumMatch:         1.0,
			ThreshInclude:        2.0,
			ThreshRelativeToBest: 0.5,
			FieldGoodEnough:      20,
			BonusMatchStart:      0.5,
			BonusTokenOrder:      2.0,
			BonusPositionDecay:   0.7,
			ScorePerToken:        true,
			ScoreTestFused:       false,
			ScoreRound:           0.1,
			TokenQueryMinLength:  2,
			TokenFieldMinLength:  3,
			TokenQueryMaxLength:  64,
			TokenFieldMaxLength:  64,
			TokenMinRelSize:      0.6,
			TokenMaxRelSize:      6,
			DefaultLimit:         10,
			MaxResults:           50,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Gateway: GatewayConfig{
			Port:         8082,
			IngestionURL: "http://localhost:8081",
			SearcherURL:  "http://localhost:8080",
		},
		Fields: []string{"title", "description"},
		Analytics: AnalyticsConfig{
			SnapshotInterval: time.Minute,
			SnapshotHistory:  100,
		},
		Admin: AdminConfig{
			Enabled: true,
			Addr:    ":9091",
		},
	}
}

// applyEnvOverrides reads FZ_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FZ_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FZ_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FZ_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FZ_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FZ_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FZ_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FZ_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("FZ_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FZ_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FZ_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FZ_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FZ_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FZ_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("FZ_GATEWAY_INGESTION_URL"); v != "" {
		cfg.Gateway.IngestionURL = v
	}
	if v := os.Getenv("FZ_GATEWAY_SEARCHER_URL"); v != "" {
		cfg.Gateway.SearcherURL = v
	}
	if v := os.Getenv("FZ_KERNEL_MINIMUM_MATCH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kernel.MinimumMatch = f
		}
	}
	if v := os.Getenv("FZ_KERNEL_THRESH_INCLUDE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Kernel.ThreshInclude = f
		}
	}
	if v := os.Getenv("FZ_FIELDS"); v != "" {
		cfg.Fields = strings.Split(v, ",")
	}
}
