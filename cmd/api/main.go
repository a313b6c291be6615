package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/joshua-takyi/dishrated/internal/audit"
	"github.com/joshua-takyi/dishrated/internal/cache"
	"github.com/joshua-takyi/dishrated/internal/config"
	"github.com/joshua-takyi/dishrated/internal/connect"
	"github.com/joshua-takyi/dishrated/internal/container"
	"github.com/joshua-takyi/dishrated/internal/helpers"
	"github.com/joshua-takyi/dishrated/internal/messaging"
	"github.com/joshua-takyi/dishrated/internal/models"
	"github.com/joshua-takyi/dishrated/internal/routes"
	"github.com/rs/zerolog"
)

func main() {
	// Load environment variables
	_ = godotenv.Load(".env.local")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg)
	logger.Info("Starting DishRated events API", "environment", cfg.Environment)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Initialize database connections
	mongoClient, err := connect.MongoDBConnect(ctx, cfg.MongoDBURI, cfg.MongoDBPassword)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to MongoDB successfully", "database", cfg.MongoDBDatabase)

	repo := models.MongodbNewRepo(mongoClient, cfg.MongoDBDatabase)
	if err := repo.EnsureEventIndexes(ctx); err != nil {
		logger.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	verifier, err := helpers.NewTokenValidator(ctx, cfg.JWTSecret, cfg.JWKSURL, cfg.JWTIssuer)
	if err != nil {
		logger.Error("Failed to set up token validation", "error", err)
		os.Exit(1)
	}

	deps := container.Deps{
		Audit: audit.New(zerolog.New(os.Stdout).With().Timestamp().Logger()),
	}

	var cacheClient *cache.Client
	if cfg.RedisURL != "" {
		rdb, err := connect.RedisConnect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, caching and rate limiting disabled", "error", err)
		} else {
			cacheClient = cache.New(rdb)
			deps.Cache = cacheClient
			logger.Info("Connected to Redis successfully")
		}
	}

	var publisher *messaging.Publisher
	if cfg.RabbitMQURL != "" {
		publisher, err = messaging.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, event notifications disabled", "error", err)
		} else {
			deps.Publisher = publisher
			logger.Info("Connected to RabbitMQ successfully", "exchange", publisher.Exchange())
		}
	}

	// Initialize dependency container
	appContainer := container.NewContainer(cfg, logger, mongoClient, verifier, deps)

	// Setup routes
	router := routes.SetupRoutes(appContainer)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	stop()
	verifier.Close()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("Error closing RabbitMQ connection", "error", err)
		}
	}
	if cacheClient != nil {
		if err := cacheClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", "error", err)
		}
	}
	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	if cfg.IsDevelopment() {
		// Human-readable logging for development
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	} else {
		// JSON logging everywhere else
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	}

	return slog.New(handler)
}
