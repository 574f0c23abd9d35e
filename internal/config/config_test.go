package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newValidConfig returns a fully-populated Config that passes validation.
func newValidConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

func TestValidate_DefaultsAreValid(t *testing.T) {
	cfg := newValidConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_ServerPortOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too large", 70000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newValidConfig()
			cfg.Server.Port = tt.port
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
		})
	}
}

func TestValidate_ServerModeInvalid(t *testing.T) {
	cfg := newValidConfig()
	cfg.Server.Mode = "production"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.mode")
}

func TestValidate_DatabaseRequiredWhenEnabled(t *testing.T) {
	cfg := newValidConfig()
	cfg.Database.Enabled = true
	cfg.Database.User = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.user")
}

func TestValidate_DatabaseSkippedWhenDisabled(t *testing.T) {
	cfg := newValidConfig()
	cfg.Database.Enabled = false
	cfg.Database.Host = ""
	cfg.Database.User = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RedisAddrRequiredWhenEnabled(t *testing.T) {
	cfg := newValidConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestValidate_KafkaBrokersRequiredWhenEnabled(t *testing.T) {
	cfg := newValidConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka.brokers")
}

func TestValidate_MinIORequiresBucket(t *testing.T) {
	cfg := newValidConfig()
	cfg.MinIO.Enabled = true
	cfg.MinIO.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio.bucket")
}

func TestValidate_LoggingLevelInvalid(t *testing.T) {
	cfg := newValidConfig()
	cfg.Logging.Level = "trace"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging.level")
}

func TestValidate_EmbeddingProviderInvalid(t *testing.T) {
	cfg := newValidConfig()
	cfg.Embedding.Provider = "bert"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.provider")
}

func TestValidate_EmbeddingAPIRequiresURL(t *testing.T) {
	cfg := newValidConfig()
	cfg.Embedding.Provider = "api"
	cfg.Embedding.APIURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding.api_url")
}

func TestValidate_SearchStrategyInvalid(t *testing.T) {
	cfg := newValidConfig()
	cfg.Search.SimilarityStrategy = "levenshtein"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.similarity_strategy")
}

func TestValidate_SearchDefaultLimitAboveMax(t *testing.T) {
	cfg := newValidConfig()
	cfg.Search.DefaultLimit = 500
	cfg.Search.MaxLimit = 100
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search.default_limit")
}

func TestValidate_ForecastArtifactDirRequiredWithoutMinIO(t *testing.T) {
	cfg := newValidConfig()
	cfg.MinIO.Enabled = false
	cfg.Forecast.ArtifactDir = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forecast.artifact_dir")
}

func TestValidate_ForecastArtifactDirOptionalWithMinIO(t *testing.T) {
	cfg := newValidConfig()
	cfg.MinIO.Enabled = true
	cfg.Forecast.ArtifactDir = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ForecastHorizonOutOfRange(t *testing.T) {
	cfg := newValidConfig()
	cfg.Forecast.DefaultHorizonDays = 1000
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forecast.default_horizon_days")
}
