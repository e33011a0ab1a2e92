package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/arslanov/padlock/config"
	appmodel "github.com/arslanov/padlock/internal/app/model"
	apprepository "github.com/arslanov/padlock/internal/app/repository"
	appserver "github.com/arslanov/padlock/internal/app/server"
	appservice "github.com/arslanov/padlock/internal/app/service"
	httputil "github.com/arslanov/padlock/internal/http/util"
	"github.com/arslanov/padlock/internal/infra/logger"
	infraMinio "github.com/arslanov/padlock/internal/infra/minio"
	infraNATS "github.com/arslanov/padlock/internal/infra/nats"
	infraPostgres "github.com/arslanov/padlock/internal/infra/postgres"
	infraPrometheus "github.com/arslanov/padlock/internal/infra/prometheus"
	infraRedis "github.com/arslanov/padlock/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.String("nats_host", cfg.NATS.Host),
		zap.String("minio_endpoint", cfg.Minio.Endpoint),
		zap.Int64("max_upload_bytes", cfg.Pads.MaxUploadBytes),
		zap.Duration("attachment_ttl", cfg.Pads.AttachmentTTL),
		zap.Duration("sweep_interval", cfg.Pads.SweepInterval),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB,
		&appmodel.Pad{}, &appmodel.Attachment{}, &appmodel.ActivityEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	blobs, err := infraMinio.NewClient(ctx, cfg.Minio)
	if err != nil {
		log.Fatal("Failed to connect to MinIO", zap.Error(err))
	}
	log.Info("Connected to MinIO successfully")

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	padRepo := apprepository.NewPadRepository(gormDB)
	attachmentRepo := apprepository.NewAttachmentRepository(gormDB)
	activityRepo := apprepository.NewActivityEventRepository(gormDB)

	var tokens *httputil.TokenSigner
	if cfg.Pads.TokenSecret != "" {
		tokens = httputil.NewTokenSigner([]byte(cfg.Pads.TokenSecret), 15*time.Minute)
	}

	gate := appservice.NewAccessGate(padRepo, tokens)
	activityPublisher := appservice.NewActivityPublisher(js)

	attachmentService := appservice.NewAttachmentService(appservice.AttachmentServiceDeps{
		Logger:         log,
		Attachments:    attachmentRepo,
		Blobs:          blobs,
		Gate:           gate,
		Activity:       activityPublisher,
		MaxUploadBytes: cfg.Pads.MaxUploadBytes,
		Lifetime:       cfg.Pads.AttachmentTTL,
	})

	padService := appservice.NewPadService(appservice.PadServiceDeps{
		Logger:      log,
		Pads:        padRepo,
		Attachments: attachmentService,
		Gate:        gate,
		Redis:       redisClient,
		Activity:    activityPublisher,
		ActivityLog: activityRepo,
	})
	if err := padService.WarmExistenceFilter(ctx); err != nil {
		log.Warn("Failed to warm pad existence filter", zap.Error(err))
	}

	summarizer := appservice.NewSummarizer(log, cfg.Pads.Summary)

	activityConsumer := appservice.NewActivityConsumer(js, log, activityRepo)
	if err := activityConsumer.Start(); err != nil {
		log.Error("Failed to start activity consumer", zap.Error(err))
	}

	sweeper := appservice.NewSweeper(log, attachmentService, pool, cfg.Pads.SweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:         log,
		Postgres:       pool,
		Redis:          redisClient,
		Pads:           padService,
		Attachments:    attachmentService,
		Summarizer:     summarizer,
		Tokens:         tokens,
		MaxUploadBytes: cfg.Pads.MaxUploadBytes,
	})

	if err := server.Listen(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
