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

	_ "github.com/bootcamp/registry/docs"
	authMiddleware "github.com/bootcamp/registry/internal/auth/middleware"
	authService "github.com/bootcamp/registry/internal/auth/service"
	"github.com/bootcamp/registry/internal/config"
	"github.com/bootcamp/registry/internal/github"
	"github.com/bootcamp/registry/internal/handlers"
	"github.com/bootcamp/registry/internal/lock"
	"github.com/bootcamp/registry/internal/logger"
	loggerMiddleware "github.com/bootcamp/registry/internal/logger/middleware"
	"github.com/bootcamp/registry/internal/middlewares"
	"github.com/bootcamp/registry/internal/repositories"
	"github.com/bootcamp/registry/internal/services"
	"github.com/bootcamp/registry/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// staffRole is the lowest role allowed on academy endpoints
const staffRole = 2

// @title Content Registry API
// @version 1.0
// @description Registry of learning assets synchronised with their source repositories

// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key for service-to-service authentication
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token. Required for academy endpoints.
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

	logger.Logger.Info("Starting Registry API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

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

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	taskClient := tasks.NewClient(asynqClient)

	// Initialize repositories
	assetRepo := repositories.NewAssetRepository(db)
	technologyRepo := repositories.NewTechnologyRepository(db)
	mediaRepo := repositories.NewMediaRepository(db)
	userRepo := repositories.NewUserRepository(db)
	errorLogRepo := repositories.NewErrorLogRepository(db)

	// Initialize services
	sourceClients := newSourceClientFactory(cfg.Github)
	locker := lock.NewRedisLocker(rdb, "registry:lock:", cfg.Assets.SyncLockTTL)

	cleanService := services.NewCleanService(assetRepo, errorLogRepo, logger.Logger)
	syncService := services.NewSyncService(
		assetRepo,
		technologyRepo,
		userRepo,
		sourceClients,
		locker,
		cleanService,
		services.SyncConfig{Host: cfg.Github.Host, CommitMessage: cfg.Github.CommitMessage},
		logger.Logger,
	)
	assetService := services.NewAssetService(assetRepo, errorLogRepo, logger.Logger)
	testService := services.NewTestService(assetRepo, logger.Logger)
	thumbnailService := services.NewThumbnailService(assetRepo, mediaRepo, taskClient, cfg.Assets.DefaultPreviewURL, logger.Logger)
	configService := services.NewConfigService(assetRepo, userRepo, sourceClients, taskClient, cfg.Assets.SystemEmail, logger.Logger)
	technologyService := services.NewTechnologyService(technologyRepo, logger.Logger)
	syncQueue := services.NewSyncQueue(assetRepo, taskClient, cfg.Assets.SyncBatchSize, cfg.Assets.SyncStaleAfter, logger.Logger)

	// Initialize auth middleware
	tokenValidator := authService.NewTokenValidator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	staffMiddleware := authMiddleware.RoleMiddleware(tokenValidator, staffRole)
	apiKeyMiddleware := authMiddleware.APIKeyMiddleware(cfg.APIKey)

	// Initialize handlers
	assetHandler := handlers.NewAssetHandler(handlers.AssetServices{
		Assets:     assetService,
		Sync:       syncService,
		Tests:      testService,
		Cleaning:   cleanService,
		Thumbnails: thumbnailService,
		Configs:    configService,
		Queue:      syncQueue,
	}, logger.Logger, staffMiddleware, apiKeyMiddleware)
	technologyHandler := handlers.NewTechnologyHandler(technologyService, logger.Logger, staffMiddleware)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middlewares.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(middlewares.RecoveryMiddleware(logger.Logger))
	r.Use(middlewares.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middlewares.RequestSizeLimitMiddleware(1 * 1024 * 1024)) // 1MB

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.Server.BaseURL+"/swagger/doc.json"),
	))

	r.Route("/api/v1/registry", func(r chi.Router) {
		assetHandler.RegisterRoutes(r)
		technologyHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // synchronous sync and push actions
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// newSourceClientFactory adapts the github client factory to the services layer
func newSourceClientFactory(cfg config.GithubConfig) services.SourceClientFactory {
	factory := github.NewClientFactory(cfg.APIBaseURL, cfg.Timeout)
	return func(token string) (services.SourceClient, error) {
		client, err := factory.ForToken(token)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "registry_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
