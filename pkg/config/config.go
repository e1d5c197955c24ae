package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"CashPilot/pkg/logger"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Metrics struct {
		Enabled       bool          `yaml:"enabled" default:"true"`
		Path          string        `yaml:"path" default:"/metrics"`
		SlowThreshold time.Duration `yaml:"slow_threshold" default:"2s"`
	} `yaml:"metrics"`
	Logger logger.Config `yaml:"logger"`
	Ledger struct {
		// Driver is one of clickhouse, postgres, mysql, sqlite.
		Driver          string        `yaml:"driver" default:"clickhouse"`
		DSN             string        `yaml:"dsn"`
		MaxOpenConns    int           `yaml:"max_open_conns" default:"10"`
		MaxIdleConns    int           `yaml:"max_idle_conns" default:"5"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" default:"30m"`
		QueryTimeout    time.Duration `yaml:"query_timeout" default:"10s"`
	} `yaml:"ledger"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"cashpilot"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" default:"true"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size" default:"10"`
	} `yaml:"redis"`
	Cache struct {
		Prefix        string        `yaml:"prefix" default:"cashpilot"`
		TTL           time.Duration `yaml:"ttl" default:"10m"`
		MemoryMaxSize int           `yaml:"memory_max_size" default:"1000"`
		MemoryTTL     time.Duration `yaml:"memory_ttl" default:"30s"`
		LockTTL       time.Duration `yaml:"lock_ttl" default:"1m"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled" default:"true"`
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]"`
		LedgerTopic  string   `yaml:"ledger_topic" default:"ledger.events"`
		AlertsTopic  string   `yaml:"alerts_topic" default:"cashflow.alerts"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"cashpilot"`
			Workers    int           `yaml:"workers" default:"4"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic" default:"ledger.events.dlq"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Queue struct {
		Enabled    bool          `yaml:"enabled" default:"true"`
		Name       string        `yaml:"name" default:"cashpilot"`
		Workers    int           `yaml:"workers" default:"4"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		PollWait   time.Duration `yaml:"poll_wait" default:"2s"`
		JobTimeout time.Duration `yaml:"job_timeout" default:"30s"`
	} `yaml:"queue"`
	Scheduler struct {
		Enabled        bool   `yaml:"enabled" default:"true"`
		Spec           string `yaml:"spec" default:"0 6 * * *"`
		LookbackMonths int    `yaml:"lookback_months" default:"3"`
	} `yaml:"scheduler"`
	Engine struct {
		HistoryMonths     int           `yaml:"history_months" default:"12"`
		ProjectionPeriods int           `yaml:"projection_periods" default:"6"`
		Timezone          string        `yaml:"timezone" default:"UTC"`
		Timeout           time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"engine"`
	Stream struct {
		Interval     time.Duration `yaml:"interval" default:"30s"`
		PingInterval time.Duration `yaml:"ping_interval" default:"20s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	} `yaml:"stream"`
	RateLimit struct {
		Enabled  bool    `yaml:"enabled" default:"true"`
		Capacity float64 `yaml:"capacity" default:"30"`
		Refill   float64 `yaml:"refill_per_sec" default:"5"`
	} `yaml:"ratelimit"`
}

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides selected fields from environment lookups.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("CASHPILOT_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("LEDGER_DRIVER"); v != "" {
		c.Ledger.Driver = v
	}
	if v := getenv("LEDGER_DSN"); v != "" {
		c.Ledger.DSN = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Location resolves the engine timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Engine.Timezone)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Ledger.Driver {
	case "clickhouse":
	case "postgres", "mysql", "sqlite":
		if c.Ledger.DSN == "" {
			return fmt.Errorf("ledger.dsn is required for driver '%s'", c.Ledger.Driver)
		}
	default:
		return fmt.Errorf("ledger.driver must be one of clickhouse, postgres, mysql, sqlite, got '%s'", c.Ledger.Driver)
	}
	if c.Engine.HistoryMonths <= 0 {
		return fmt.Errorf("engine.history_months must be positive")
	}
	if c.Engine.ProjectionPeriods <= 0 {
		return fmt.Errorf("engine.projection_periods must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("engine.timezone: %w", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("queue requires redis.enabled")
	}
	if c.Scheduler.Enabled && !c.Queue.Enabled {
		return fmt.Errorf("scheduler requires queue.enabled")
	}
	if c.Scheduler.LookbackMonths <= 0 {
		return fmt.Errorf("scheduler.lookback_months must be positive")
	}
	return nil
}
