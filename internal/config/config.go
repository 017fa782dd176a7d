package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	AWS       AWSConfig
	Analysis  AnalysisConfig
	Quota     QuotaConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	NATS      NATSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AWSConfig struct {
	Region string
}

// AnalysisConfig covers the S3 upload target and Rekognition defaults.
type AnalysisConfig struct {
	Bucket       string
	UploadPrefix string

	// MinConfidence must be provided explicitly; zero is a legal threshold,
	// so presence cannot be inferred from the value.
	MinConfidence    float64
	MinConfidenceSet bool

	MaxLabels int
}

// QuotaConfig controls daily per-caller analysis quotas.
type QuotaConfig struct {
	Table   string
	Limit   int
	Enabled bool
}

type AdminConfig struct {
	TokenSecret string
	AccountID   string
}

type RateLimitConfig struct {
	MaxRequests int
	WindowSec   int
}

type NATSConfig struct {
	URL string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		AWS: AWSConfig{
			Region: k.String("aws.region"),
		},
		Analysis: AnalysisConfig{
			Bucket:           k.String("bucket.name"),
			UploadPrefix:     k.String("upload.prefix"),
			MinConfidence:    k.Float64("default.min.confidence"),
			MinConfidenceSet: k.Exists("default.min.confidence"),
			MaxLabels:        k.Int("default.max.labels"),
		},
		Quota: QuotaConfig{
			Table:   k.String("quota.table"),
			Limit:   k.Int("quota.limit"),
			Enabled: true,
		},
		Admin: AdminConfig{
			TokenSecret: k.String("admin.token.secret"),
			AccountID:   k.String("admin.account.id"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: k.Int("ratelimit.max.requests"),
			WindowSec:   k.Int("ratelimit.window.sec"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	if k.Exists("feature.quota.enabled") {
		cfg.Quota.Enabled = k.Bool("feature.quota.enabled")
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "snapsight"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "snapsight"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Analysis.MaxLabels == 0 {
		cfg.Analysis.MaxLabels = 100
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 30
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}
