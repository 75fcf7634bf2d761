package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joshua-takyi/nestly/internal/cache"
	"github.com/joshua-takyi/nestly/internal/config"
	"github.com/joshua-takyi/nestly/internal/connect"
	"github.com/joshua-takyi/nestly/internal/container"
	"github.com/joshua-takyi/nestly/internal/events"
	"github.com/joshua-takyi/nestly/internal/helpers"
	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/routes"
)

func main() {
	config.LoadEnvFiles()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg)
	slog.SetDefault(logger)
	logger.Info("Starting Nestly API server", "environment", cfg.Environment)

	ctx := context.Background()

	mongoClient, err := connect.MongoDBConnect(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	repo := models.MongodbNewRepo(mongoClient, cfg.MongoDBDatabase)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Error("Failed to ensure indexes", "error", err)
		os.Exit(1)
	}

	var infra container.Infra

	redisClient, err := connect.RedisConnect(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		infra.Cache = cache.NewPropertyCache(redisClient, cfg.CacheTTL, logger)
	}

	cld, err := connect.CloudinaryCredentials(cfg)
	if err != nil {
		logger.Error("Failed to connect to Cloudinary", "error", err)
		os.Exit(1)
	}
	if cld != nil {
		infra.Uploader = helpers.NewCloudinaryUploader(cld)
	}

	if len(cfg.KafkaBrokers) > 0 {
		infra.Publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		logger.Info("Publishing booking events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		infra.Publisher = events.NopPublisher{}
	}

	jwks, err := connect.JWKS(ctx, cfg)
	if err != nil {
		logger.Error("Failed to load JWKS", "error", err)
		os.Exit(1)
	}

	tokens := helpers.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry, jwks)
	appContainer := container.NewContainer(cfg, logger, tokens, container.MongoRepositories(repo), infra)
	router := routes.SetupRoutes(appContainer)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := infra.Publisher.Close(); err != nil {
		logger.Error("Error closing event publisher", "error", err)
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Error closing Redis", "error", err)
		}
	}
	if jwks != nil {
		jwks.EndBackground()
	}
	if err := connect.MongoDBDisconnect(mongoClient); err != nil {
		logger.Error("Error disconnecting from MongoDB", "error", err)
	}

	logger.Info("Server exited")
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelDebug
	if cfg.IsProduction() {
		level = slog.LevelInfo
	}
	if cfg.LogLevel != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err == nil {
			level = parsed
		}
	}

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
