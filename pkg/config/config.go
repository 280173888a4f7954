package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BitLearn/internal/domain/models"
)

// Cloud backends accepted in cloud.backend.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host                 string        `yaml:"host" default:"0.0.0.0"`
		Port                 int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout          time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout         time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout      time.Duration `yaml:"shutdown_timeout" default:"20s"`
		SlowRequestThreshold time.Duration `yaml:"slow_request_threshold" default:"1s"`
		CORSOrigins          []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
		// Aggregated warn/error logs are published to this Kafka topic when set.
		CollectorTopic    string        `yaml:"collector_topic"`
		CollectorInterval time.Duration `yaml:"collector_interval" default:"30s"`
	} `yaml:"log"`
	API struct {
		CacheTTL      time.Duration `yaml:"cache_ttl" default:"5s"`
		CacheBackend  string        `yaml:"cache_backend" default:"memory" validate:"oneof=memory redis"`
		ForceBurst    float64       `yaml:"force_burst" default:"3" validate:"gt=0"`
		ForcePerSec   float64       `yaml:"force_per_sec" default:"0.1" validate:"gt=0"`
		WSBuffer      int           `yaml:"ws_buffer" default:"64" validate:"gt=0"`
		WSPingPeriod  time.Duration `yaml:"ws_ping_period" default:"30s"`
		WSWriteWindow time.Duration `yaml:"ws_write_window" default:"10s"`
	} `yaml:"api"`
	Engine  models.EngineConfig `yaml:"engine"`
	Sources struct {
		Market   string        `yaml:"market"`
		Mempool  string        `yaml:"mempool"`
		Ordinals string        `yaml:"ordinals"`
		Runes    string        `yaml:"runes"`
		Social   string        `yaml:"social"`
		Symbol   string        `yaml:"symbol"` // ticker URL template, {SYMBOL} or {symbol}
		Timeout  time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"sources"`
	Scorer struct {
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout" default:"3s"`
		Attempts int           `yaml:"attempts" default:"2" validate:"gte=1"`
	} `yaml:"scorer"`
	Cloud struct {
		Backend string `yaml:"backend" default:"none" validate:"oneof=none memory redis s3 postgres"`
		Name    string `yaml:"name" default:"bitlearn"`
	} `yaml:"cloud"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"bitlearn"`
	} `yaml:"redis"`
	S3 struct {
		Endpoint  string `yaml:"endpoint"`
		UseSSL    bool   `yaml:"use_ssl" default:"true"`
		Region    string `yaml:"region" default:"us-east-1"`
		Bucket    string `yaml:"bucket"`
		Prefix    string `yaml:"prefix" default:"bitlearn"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		PathStyle bool   `yaml:"path_style"`
	} `yaml:"s3"`
	Postgres struct {
		DSN      string `yaml:"dsn"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port" default:"5432"`
		Database string `yaml:"database" default:"bitlearn"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"ssl_mode" default:"disable"`
		MaxConns int32  `yaml:"max_conns" default:"10"`
	} `yaml:"postgres"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"bitlearn"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		EventsTopic  string   `yaml:"events_topic" default:"bitlearn.events"`
		RequiredAcks int      `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Arbitrage ArbitrageConfig `yaml:"arbitrage"`
}

// ArbitrageConfig replaces the built-in venues or rune assets when non-empty.
// Quotes pins venue name -> asset id -> price; pairs without a quote are
// simulated around the asset's reference price.
type ArbitrageConfig struct {
	Venues []VenueConfig                 `yaml:"venues" validate:"dive"`
	Assets []RuneAssetConfig             `yaml:"assets" validate:"dive"`
	Quotes map[string]map[string]float64 `yaml:"quotes"`
}

type VenueConfig struct {
	Name       string   `yaml:"name" validate:"required"`
	FeePercent float64  `yaml:"fee_percent" validate:"gte=0,lt=100"`
	Assets     []string `yaml:"assets" validate:"min=1"`
}

type RuneAssetConfig struct {
	ID             string  `yaml:"id" validate:"required"`
	Name           string  `yaml:"name"`
	ReferencePrice float64 `yaml:"reference_price" validate:"gt=0"`
	Volume24h      float64 `yaml:"volume_24h" validate:"gte=0"`
}

var validate = validator.New()

// Parse decodes YAML over the struct defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = strings.Split(v, ",")
		}
	}

	str("ENVIRONMENT", &c.Environment)
	str("LOG_LEVEL", &c.Log.Level)
	str("CLOUD_BACKEND", &c.Cloud.Backend)
	str("REDIS_HOST", &c.Redis.Host)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("S3_BUCKET", &c.S3.Bucket)
	str("S3_ENDPOINT", &c.S3.Endpoint)
	str("S3_ACCESS_KEY", &c.S3.AccessKey)
	str("S3_SECRET_KEY", &c.S3.SecretKey)
	str("POSTGRES_DSN", &c.Postgres.DSN)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)
	str("SCORER_URL", &c.Scorer.URL)
	list("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("KAFKA_EVENTS_TOPIC", &c.Kafka.EventsTopic)

	if v, ok := lookup("SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("USE_CLOUD_STORAGE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("USE_CLOUD_STORAGE: %w", err)
		}
		c.Engine.UseCloudStorage = b
	}
	if v, ok := lookup("SIMULATION_SEED"); ok && v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SIMULATION_SEED: %w", err)
		}
		c.Engine.SimulationSeed = seed
	}
	return nil
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Cloud.Backend {
	case BackendS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required for the s3 backend")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" && c.Postgres.Host == "" {
			return fmt.Errorf("postgres.dsn or postgres.host is required for the postgres backend")
		}
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return nil
}

// CloudEnabled reports whether a cloud store should be built.
func (c *Config) CloudEnabled() bool {
	return c.Cloud.Backend != "" && c.Cloud.Backend != BackendNone
}
