package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.InDelta(t, 0.90, cfg.Correction.DeadbandLow, 1e-9)
	assert.InDelta(t, 1.10, cfg.Correction.DeadbandHigh, 1e-9)
	assert.InDelta(t, 0.15, cfg.Correction.DecayRate, 1e-9)
	assert.Equal(t, 2, cfg.Correction.DecayMinThreshold)
	assert.Equal(t, 6, cfg.Correction.DecayMaxCycles)
	assert.Equal(t, 56, cfg.Correction.LookbackDays)
	assert.Equal(t, 3, cfg.Correction.MinSamples)
	assert.True(t, cfg.UseMemoryStores())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("SHIFTCAST_SERVER_PORT", "9191")
	t.Setenv("SHIFTCAST_DATABASE_DSN", "postgres://localhost:5432/shiftcast")
	t.Setenv("SHIFTCAST_CORRECTION_DECAY_RATE", "0.25")
	t.Setenv("SHIFTCAST_KAFKA_BROKERS", "broker-a:9092,broker-b:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost:5432/shiftcast", cfg.Database.DSN)
	assert.False(t, cfg.UseMemoryStores())
	assert.InDelta(t, 0.25, cfg.Correction.DecayRate, 1e-9)
	assert.Equal(t, []string{"broker-a:9092", "broker-b:9092"}, cfg.Kafka.Brokers)

	// Untouched sections keep their defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "shiftcast-intake", cfg.Kafka.GroupID)
}

func TestLoadFromFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9000
correction:
  decay_rate: 0.2
  lookback_days: 28
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg := Default()
	require.NoError(t, loadFromFile(path, cfg))

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.InDelta(t, 0.2, cfg.Correction.DecayRate, 1e-9)
	assert.Equal(t, 28, cfg.Correction.LookbackDays)

	// Keys absent from the file keep the defaults.
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 3, cfg.Correction.MinSamples)
}

func TestEnvironmentBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("SHIFTCAST_SERVER_PORT", "9100")

	cfg := Default()
	require.NoError(t, loadFromFile(path, cfg))
	require.NoError(t, envconfig.Process(EnvPrefix, cfg))

	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero port", mutate: func(c *Config) { c.Server.Port = 0 }},
		{name: "port above range", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "zero read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }},
		{name: "no allowed origins", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }},
		{name: "inverted deadband", mutate: func(c *Config) { c.Correction.DeadbandLow = 1.2 }},
		{name: "zero lookback", mutate: func(c *Config) { c.Correction.LookbackDays = 0 }},
		{name: "zero min samples", mutate: func(c *Config) { c.Correction.MinSamples = 0 }},
		{name: "zero workers", mutate: func(c *Config) { c.Jobs.Workers = 0 }},
		{name: "dsn without pool", mutate: func(c *Config) {
			c.Database.DSN = "postgres://localhost/shiftcast"
			c.Database.MaxConns = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateNormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "pretty"
	cfg.Logging.Output = "file"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "logs/shiftcast.log", cfg.Logging.FilePath)
}

func TestCorrectionConfigConversions(t *testing.T) {
	cfg := Default()

	params := cfg.Correction.Params()
	require.NoError(t, params.Validate())
	assert.InDelta(t, 0.850, params.MultiplierFloor, 1e-9)
	assert.InDelta(t, 1.250, params.MultiplierCeiling, 1e-9)
	assert.InDelta(t, 20.0, params.SnapshotWindowLow, 1e-9)
	assert.InDelta(t, 28.0, params.SnapshotWindowHigh, 1e-9)

	decay := cfg.Correction.DecayParams()
	require.NoError(t, decay.Validate())
	assert.InDelta(t, 0.15, decay.Rate, 1e-9)
	assert.Equal(t, 2, decay.MinThreshold)
	assert.Equal(t, 6, decay.MaxCycles)
}
