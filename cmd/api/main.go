package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/sts"

	"github.com/snapsight/snapsight/internal/analyze"
	"github.com/snapsight/snapsight/internal/api"
	"github.com/snapsight/snapsight/internal/auth"
	"github.com/snapsight/snapsight/internal/config"
	"github.com/snapsight/snapsight/internal/database"
	"github.com/snapsight/snapsight/internal/events"
	mw "github.com/snapsight/snapsight/internal/middleware"
	"github.com/snapsight/snapsight/internal/quota"
	iredis "github.com/snapsight/snapsight/internal/redis"
	"github.com/snapsight/snapsight/internal/server"
	"github.com/snapsight/snapsight/internal/storage"
	"github.com/snapsight/snapsight/internal/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("validating config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// AWS clients share one session; transient S3 errors retry at SDK level.
	sess := session.Must(session.NewSession(aws.NewConfig().
		WithRegion(cfg.AWS.Region).
		WithMaxRetries(2)))

	// Resolve the service's own account for the admin same-account rule.
	// Unresolvable identity disables bypass rather than the whole service.
	accountID, err := auth.ResolveAccountID(sts.New(sess), cfg.Admin.AccountID)
	if err != nil {
		slog.Warn("resolving AWS account failed, admin bypass disabled", "error", err)
		accountID = ""
	}
	adminTokens := auth.NewAdminTokenManager(cfg.Admin.TokenSecret, accountID)

	// Optional NATS audit events
	var publisher *events.Publisher
	if cfg.NATS.URL != "" {
		publisher, err = events.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			slog.Warn("connecting to NATS failed, audit events disabled", "error", err)
		} else {
			defer publisher.Close()
		}
	}

	// Quota store + expiry janitor
	quotaStore := quota.NewPGStore(pool, cfg.Quota.Table)
	go quota.NewJanitor(quotaStore, 0).Run(ctx)

	// Domain services
	gateway := storage.NewGateway(s3.New(sess), cfg.Analysis.Bucket, cfg.Analysis.UploadPrefix)
	visionClient := vision.NewClient(rekognition.New(sess), cfg.Analysis.MaxLabels)

	svc := analyze.NewService(quotaStore, gateway, visionClient, publisher, cfg.Quota.Limit, cfg.Quota.Enabled)
	handler := analyze.NewHandler(svc, cfg.Analysis.MinConfidence)

	limiter := mw.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec)

	router := api.NewRouter(pool, api.RouterConfig{
		Bucket:       cfg.Analysis.Bucket,
		QuotaEnabled: cfg.Quota.Enabled,
	}, api.HandlerSet{
		Analyze:         handler.Analyze,
		AdminAnalyze:    handler.AdminAnalyze,
		AdminMiddleware: auth.AdminMiddleware(adminTokens),
		BurstLimiter:    limiter.Middleware,
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
