// internal/config/env.go
package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv overrides cfg with HERITAGE_* environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("HERITAGE_BASE_URL"); v != "" {
		cfg.Target.BaseURL = v
	}
	if v := os.Getenv("HERITAGE_API_KEY"); v != "" {
		cfg.Target.APIKey = v
	}
	if v := os.Getenv("HERITAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Target.Timeout = d
		}
	}
	if v := os.Getenv("HERITAGE_MAX_RPS"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Target.MaxRPS = rps
		}
	}

	if v := os.Getenv("HERITAGE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HERITAGE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	cfg.Fixtures.Contributors = GetEnvOrDefault("HERITAGE_CONTRIBUTORS", cfg.Fixtures.Contributors)
	cfg.Fixtures.Dir = GetEnvOrDefault("HERITAGE_FIXTURES_DIR", cfg.Fixtures.Dir)
	cfg.Metrics.Addr = GetEnvOrDefault("HERITAGE_METRICS_ADDR", cfg.Metrics.Addr)
	cfg.Results.Path = GetEnvOrDefault("HERITAGE_RESULTS", cfg.Results.Path)

	// Report bucket
	s3 := &cfg.Report.S3
	s3.Endpoint = GetEnvOrDefault("HERITAGE_S3_ENDPOINT", s3.Endpoint)
	s3.Region = GetEnvOrDefault("HERITAGE_S3_REGION", s3.Region)
	s3.Bucket = GetEnvOrDefault("HERITAGE_S3_BUCKET", s3.Bucket)
	s3.Prefix = GetEnvOrDefault("HERITAGE_S3_PREFIX", s3.Prefix)
	s3.AccessKey = GetEnvOrDefault("HERITAGE_S3_ACCESS_KEY", s3.AccessKey)
	s3.SecretKey = GetEnvOrDefault("HERITAGE_S3_SECRET_KEY", s3.SecretKey)
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
