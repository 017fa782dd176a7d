package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for startup-fatal problems.
// It collects all errors into a single joined error so operators see
// everything wrong with the environment at once.
func (c *Config) Validate() error {
	var errs []string

	// Analysis target
	if c.Analysis.Bucket == "" {
		errs = append(errs, "BUCKET_NAME is required")
	}
	if c.Analysis.UploadPrefix == "" {
		errs = append(errs, "UPLOAD_PREFIX is required")
	}
	if !c.Analysis.MinConfidenceSet {
		errs = append(errs, "DEFAULT_MIN_CONFIDENCE is required")
	} else if c.Analysis.MinConfidence < 0 || c.Analysis.MinConfidence > 100 {
		errs = append(errs, fmt.Sprintf("DEFAULT_MIN_CONFIDENCE must be 0-100, got %v", c.Analysis.MinConfidence))
	}
	if c.Analysis.MaxLabels < 1 {
		errs = append(errs, fmt.Sprintf("DEFAULT_MAX_LABELS must be positive, got %d", c.Analysis.MaxLabels))
	}

	// Quota
	if c.Quota.Table == "" {
		errs = append(errs, "QUOTA_TABLE is required")
	}
	if c.Quota.Limit < 1 {
		errs = append(errs, fmt.Sprintf("QUOTA_LIMIT must be positive, got %d", c.Quota.Limit))
	}

	// Admin token secret
	if len(c.Admin.TokenSecret) < 32 {
		errs = append(errs, "ADMIN_TOKEN_SECRET must be at least 32 characters")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
