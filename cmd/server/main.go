// Package main is the entry point for the dog list API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vyrodovalexey/doglist-api/internal/auth"
	"github.com/vyrodovalexey/doglist-api/internal/config"
	"github.com/vyrodovalexey/doglist-api/internal/dogs"
	"github.com/vyrodovalexey/doglist-api/internal/photo"
	"github.com/vyrodovalexey/doglist-api/internal/server"
	"github.com/vyrodovalexey/doglist-api/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use a basic logger for startup errors
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		basicLogger, _ := zap.NewProduction()
		basicLogger.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("configuration loaded",
		zap.Int("server_port", cfg.ServerPort),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("shutdown_timeout", cfg.ShutdownTimeout),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
		zap.String("store_driver", cfg.StoreDriver),
		zap.String("photo_api_url", cfg.PhotoAPIURL),
		zap.Float64("photo_rate_limit", cfg.PhotoRateLimit),
		zap.String("auth_mode", cfg.AuthMode),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	authenticator, err := auth.New(cfg.AuthMode, cfg.BasicAuthUsers, cfg.APIKeys)
	if err != nil {
		logger.Error("failed to create authenticator", zap.Error(err))
		return 1
	}

	dogStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", zap.Error(err))
		return 1
	}
	defer func() {
		if err := dogStore.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}()

	photos, err := photo.NewClient(photo.Options{
		BaseURL:   cfg.PhotoAPIURL,
		Timeout:   cfg.PhotoTimeout,
		RateLimit: cfg.PhotoRateLimit,
	}, logger)
	if err != nil {
		logger.Error("failed to create photo client", zap.Error(err))
		return 1
	}

	svc, err := dogs.NewService(ctx, dogs.Deps{
		Store:  dogStore,
		Photos: photos,
		Logger: logger,
	})
	if err != nil {
		logger.Error("failed to load dog list", zap.Error(err))
		return 1
	}

	flows := dogs.NewFlowRegistry(svc.FetchPhoto, cfg.FlowTTL, logger)
	go flows.Run(ctx)

	srv := server.New(cfg, logger, server.Deps{
		Service:       svc,
		Flows:         flows,
		Authenticator: authenticator,
	})

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	select {
	case err := <-serverErrors:
		logger.Error("server error", zap.Error(err))
		return 1
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return 1
		}
	}

	logger.Info("server stopped")
	return 0
}

// openStore opens the persistence provider selected by the config.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Driver:      cfg.StoreDriver,
		SQLitePath:  cfg.SQLitePath,
		PostgresDSN: cfg.PostgresDSN,
	})
}

// initLogger initializes a zap logger with the specified log level.
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:       zap.NewAtomicLevelAt(zapLevel),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding: "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return zapConfig.Build()
}
