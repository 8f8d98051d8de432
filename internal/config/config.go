package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"shiftcast/internal/correction"
)

// EnvPrefix is the prefix for all environment variable overrides,
// e.g. SHIFTCAST_SERVER_PORT.
const EnvPrefix = "SHIFTCAST"

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" envconfig:"SERVER"`
	Database   DatabaseConfig   `yaml:"database" envconfig:"DATABASE"`
	Kafka      KafkaConfig      `yaml:"kafka" envconfig:"KAFKA"`
	Security   SecurityConfig   `yaml:"security" envconfig:"SECURITY"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Correction CorrectionConfig `yaml:"correction" envconfig:"CORRECTION"`
	Jobs       JobsConfig       `yaml:"jobs" envconfig:"JOBS"`
	Intake     IntakeConfig     `yaml:"intake" envconfig:"INTAKE"`
	WebSocket  WebSocketConfig  `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// DatabaseConfig contains the Postgres pool configuration. An empty DSN
// switches the application to the in-memory stores, which is intended for
// local development only.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn" envconfig:"DSN"`
	MaxConns        int32         `yaml:"max_conns" envconfig:"MAX_CONNS"`
	MinConns        int32         `yaml:"min_conns" envconfig:"MIN_CONNS"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" envconfig:"MAX_CONN_LIFETIME"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout" envconfig:"CONNECT_TIMEOUT"`
}

// KafkaConfig contains the consumer settings for the intake streams.
type KafkaConfig struct {
	Brokers        []string      `yaml:"brokers" envconfig:"BROKERS"`
	GroupID        string        `yaml:"group_id" envconfig:"GROUP_ID"`
	ForecastTopic  string        `yaml:"forecast_topic" envconfig:"FORECAST_TOPIC"`
	SnapshotTopic  string        `yaml:"snapshot_topic" envconfig:"SNAPSHOT_TOPIC"`
	ActualsTopic   string        `yaml:"actuals_topic" envconfig:"ACTUALS_TOPIC"`
	MinBytes       int           `yaml:"min_bytes" envconfig:"MIN_BYTES"`
	MaxBytes       int           `yaml:"max_bytes" envconfig:"MAX_BYTES"`
	CommitInterval time.Duration `yaml:"commit_interval" envconfig:"COMMIT_INTERVAL"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// CorrectionConfig exposes the correction pipeline tunables. The zero value
// is not usable; Default wires in the standard parameters.
type CorrectionConfig struct {
	DeadbandLow             float64 `yaml:"deadband_low" envconfig:"DEADBAND_LOW"`
	DeadbandHigh            float64 `yaml:"deadband_high" envconfig:"DEADBAND_HIGH"`
	SlowSlope               float64 `yaml:"slow_slope" envconfig:"SLOW_SLOPE"`
	FastSlope               float64 `yaml:"fast_slope" envconfig:"FAST_SLOPE"`
	MultiplierFloor         float64 `yaml:"multiplier_floor" envconfig:"MULTIPLIER_FLOOR"`
	MultiplierCeiling       float64 `yaml:"multiplier_ceiling" envconfig:"MULTIPLIER_CEILING"`
	SnapshotWindowLowHours  float64 `yaml:"snapshot_window_low_hours" envconfig:"SNAPSHOT_WINDOW_LOW_HOURS"`
	SnapshotWindowHighHours float64 `yaml:"snapshot_window_high_hours" envconfig:"SNAPSHOT_WINDOW_HIGH_HOURS"`
	DecayRate               float64 `yaml:"decay_rate" envconfig:"DECAY_RATE"`
	DecayMinThreshold       int     `yaml:"decay_min_threshold" envconfig:"DECAY_MIN_THRESHOLD"`
	DecayMaxCycles          int     `yaml:"decay_max_cycles" envconfig:"DECAY_MAX_CYCLES"`
	LookbackDays            int     `yaml:"lookback_days" envconfig:"LOOKBACK_DAYS"`
	MinSamples              int     `yaml:"min_samples" envconfig:"MIN_SAMPLES"`
}

// Params converts the configured tunables to correction parameters.
func (c CorrectionConfig) Params() correction.Params {
	return correction.Params{
		DeadbandLow:        c.DeadbandLow,
		DeadbandHigh:       c.DeadbandHigh,
		SlowSlope:          c.SlowSlope,
		FastSlope:          c.FastSlope,
		MultiplierFloor:    c.MultiplierFloor,
		MultiplierCeiling:  c.MultiplierCeiling,
		SnapshotWindowLow:  c.SnapshotWindowLowHours,
		SnapshotWindowHigh: c.SnapshotWindowHighHours,
	}
}

// DecayParams converts the configured decay tunables.
func (c CorrectionConfig) DecayParams() correction.DecayParams {
	return correction.DecayParams{
		Rate:         c.DecayRate,
		MinThreshold: c.DecayMinThreshold,
		MaxCycles:    c.DecayMaxCycles,
	}
}

// JobsConfig contains the background job runner configuration.
type JobsConfig struct {
	Workers                 int           `yaml:"workers" envconfig:"WORKERS"`
	QueueSize               int           `yaml:"queue_size" envconfig:"QUEUE_SIZE"`
	VenueConcurrency        int           `yaml:"venue_concurrency" envconfig:"VENUE_CONCURRENCY"`
	JobTimeout              time.Duration `yaml:"job_timeout" envconfig:"JOB_TIMEOUT"`
	DecayInterval           time.Duration `yaml:"decay_interval" envconfig:"DECAY_INTERVAL"`
	PacingRefreshInterval   time.Duration `yaml:"pacing_refresh_interval" envconfig:"PACING_REFRESH_INTERVAL"`
	AccuracyRefreshInterval time.Duration `yaml:"accuracy_refresh_interval" envconfig:"ACCURACY_REFRESH_INTERVAL"`
}

// IntakeConfig contains the file-based intake and export locations.
type IntakeConfig struct {
	WorkbookDir string `yaml:"workbook_dir" envconfig:"WORKBOOK_DIR"`
	ExportDir   string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
}

// WebSocketConfig contains WebSocket hub configuration.
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration in three layers: built-in defaults, an
// optional YAML file, then environment variables. Later layers win. A .env
// file in the working directory is read first so local overrides reach the
// environment layer.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := findConfigFile(); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays configuration from a YAML file onto cfg. Keys absent
// from the file keep their current values.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// findConfigFile probes the common config file locations.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Validate checks the configuration for values that would break the
// application at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	if c.Database.DSN != "" && c.Database.MaxConns <= 0 {
		return fmt.Errorf("database max_conns must be positive")
	}
	if err := c.Correction.Params().Validate(); err != nil {
		return fmt.Errorf("correction parameters: %w", err)
	}
	if err := c.Correction.DecayParams().Validate(); err != nil {
		return fmt.Errorf("decay parameters: %w", err)
	}
	if c.Correction.LookbackDays <= 0 {
		return fmt.Errorf("correction lookback_days must be positive")
	}
	if c.Correction.MinSamples <= 0 {
		return fmt.Errorf("correction min_samples must be positive")
	}
	if c.Jobs.Workers <= 0 {
		return fmt.Errorf("jobs workers must be positive")
	}
	if c.Jobs.VenueConcurrency <= 0 {
		return fmt.Errorf("jobs venue_concurrency must be positive")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		c.Logging.Output = "stdout"
	}
	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/shiftcast.log"
	}

	return nil
}

// UseMemoryStores reports whether the application should run against the
// in-memory stores instead of Postgres.
func (c *Config) UseMemoryStores() bool {
	return c.Database.DSN == ""
}

// Default returns the built-in configuration.
func Default() *Config {
	correctionDefaults := correction.DefaultParams()
	decayDefaults := correction.DefaultDecayParams()

	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:        8,
			MinConns:        2,
			MaxConnLifetime: time.Hour,
			ConnectTimeout:  10 * time.Second,
		},
		Kafka: KafkaConfig{
			GroupID:        "shiftcast-intake",
			ForecastTopic:  "forecasts.raw",
			SnapshotTopic:  "reservations.snapshots",
			ActualsTopic:   "covers.actuals",
			MinBytes:       1,
			MaxBytes:       10 << 20,
			CommitInterval: time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Correction: CorrectionConfig{
			DeadbandLow:             correctionDefaults.DeadbandLow,
			DeadbandHigh:            correctionDefaults.DeadbandHigh,
			SlowSlope:               correctionDefaults.SlowSlope,
			FastSlope:               correctionDefaults.FastSlope,
			MultiplierFloor:         correctionDefaults.MultiplierFloor,
			MultiplierCeiling:       correctionDefaults.MultiplierCeiling,
			SnapshotWindowLowHours:  correctionDefaults.SnapshotWindowLow,
			SnapshotWindowHighHours: correctionDefaults.SnapshotWindowHigh,
			DecayRate:               decayDefaults.Rate,
			DecayMinThreshold:       decayDefaults.MinThreshold,
			DecayMaxCycles:          decayDefaults.MaxCycles,
			LookbackDays:            correction.DefaultLookbackDays,
			MinSamples:              correction.DefaultMinSamples,
		},
		Jobs: JobsConfig{
			Workers:                 2,
			QueueSize:               64,
			VenueConcurrency:        4,
			JobTimeout:              10 * time.Minute,
			DecayInterval:           7 * 24 * time.Hour,
			PacingRefreshInterval:   24 * time.Hour,
			AccuracyRefreshInterval: 24 * time.Hour,
		},
		Intake: IntakeConfig{
			WorkbookDir: "data/workbooks",
			ExportDir:   "data/exports",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
