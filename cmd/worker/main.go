package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bootcamp/registry/internal/config"
	"github.com/bootcamp/registry/internal/github"
	"github.com/bootcamp/registry/internal/lock"
	"github.com/bootcamp/registry/internal/logger"
	"github.com/bootcamp/registry/internal/media"
	"github.com/bootcamp/registry/internal/notify"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/bootcamp/registry/internal/services"
	"github.com/bootcamp/registry/internal/storage"
	"github.com/bootcamp/registry/internal/tasks"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Registry Worker")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Connect to object storage
	bucket, err := storage.NewS3Storage(ctx, cfg.Storage)
	if err != nil {
		logger.Logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Initialize repositories
	assetRepo := repositories.NewAssetRepository(db)
	technologyRepo := repositories.NewTechnologyRepository(db)
	mediaRepo := repositories.NewMediaRepository(db)
	userRepo := repositories.NewUserRepository(db)
	errorLogRepo := repositories.NewErrorLogRepository(db)

	// Initialize services
	clientFactory := github.NewClientFactory(cfg.Github.APIBaseURL, cfg.Github.Timeout)
	sourceClients := func(token string) (services.SourceClient, error) {
		client, err := clientFactory.ForToken(token)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	syncService := services.NewSyncService(
		assetRepo,
		technologyRepo,
		userRepo,
		sourceClients,
		lock.NewRedisLocker(rdb, "registry:lock:", cfg.Assets.SyncLockTTL),
		services.NewCleanService(assetRepo, errorLogRepo, logger.Logger),
		services.SyncConfig{Host: cfg.Github.Host, CommitMessage: cfg.Github.CommitMessage},
		logger.Logger,
	)
	processor := media.NewProcessor(assetRepo, mediaRepo, bucket, &http.Client{Timeout: cfg.Assets.DownloadTimeout}, logger.Logger)
	mailer := notify.NewMailer(cfg.SMTP)

	// Create Asynq server
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Queues: map[string]int{
				tasks.QueueImmediate: 5,
				tasks.QueueDefault:   1,
			},
		},
	)

	// Register task handlers
	worker := NewWorker(logger.Logger, processor, syncService, mailer)
	mux := asynq.NewServeMux()
	worker.Register(mux)

	// Start worker
	go func() {
		if err := srv.Run(mux); err != nil {
			logger.Logger.Fatal("Failed to start worker", zap.Error(err))
		}
	}()

	logger.Logger.Info("Worker started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down worker...")
	srv.Shutdown()
	logger.Logger.Info("Worker exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
