package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "snapsight",
			Password: "secret", Name: "snapsight", SSLMode: "disable",
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		AWS:   AWSConfig{Region: "us-east-1"},
		Analysis: AnalysisConfig{
			Bucket: "photos", UploadPrefix: "uploads",
			MinConfidence: 55, MinConfidenceSet: true, MaxLabels: 100,
		},
		Quota: QuotaConfig{Table: "quota_usage", Limit: 50, Enabled: true},
		Admin: AdminConfig{TokenSecret: "0123456789abcdef0123456789abcdef"},
	}
}

func TestValidate_HappyPath(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.Bucket = ""
	cfg.Quota.Table = ""
	cfg.DB.Password = ""

	err := cfg.Validate()
	require.Error(t, err)

	// A single startup failure should name every missing variable.
	assert.Contains(t, err.Error(), "BUCKET_NAME")
	assert.Contains(t, err.Error(), "QUOTA_TABLE")
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestValidate_MinConfidenceRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.MinConfidence = 0
	cfg.Analysis.MinConfidenceSet = false

	// An unset threshold reads as zero, which would pass the range check and
	// silently disable confidence filtering. Absence must refuse to boot.
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_MIN_CONFIDENCE is required")
}

func TestValidate_MinConfidenceZeroIsValidWhenSet(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.MinConfidence = 0
	cfg.Analysis.MinConfidenceSet = true

	require.NoError(t, cfg.Validate())
}

func TestValidate_MinConfidenceRange(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.MinConfidence = 101

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DEFAULT_MIN_CONFIDENCE")
}

func TestValidate_ShortAdminSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Admin.TokenSecret = "too-short"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_TOKEN_SECRET")
}

func TestValidate_QuotaLimitPositive(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.Limit = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUOTA_LIMIT")
}

func TestValidate_PortRanges(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	cfg.Redis.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT")
	assert.Contains(t, err.Error(), "REDIS_PORT")
}
