package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/saaga0h/circadian-platform/internal/collector"
	"github.com/saaga0h/circadian-platform/pkg/config"
	"github.com/saaga0h/circadian-platform/pkg/health"
	"github.com/saaga0h/circadian-platform/pkg/mqtt"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg := config.NewConfig()
	cfg.ServiceName = "lux-collector"
	cfg.HealthPort = 8081
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	// The collector never computes solar time, so no location is required
	if err := cfg.ValidateService(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Lux collector exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Lux collector starting",
		"service_name", cfg.ServiceName,
		"mqtt_broker", cfg.MQTTAddress(),
		"redis_host", cfg.RedisAddress(),
		"topics", strings.Join(cfg.CollectorTopics, ","),
		"retention", cfg.LuxRetention())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mqttClient := mqtt.NewClient(cfg, logger)
	redisClient := redis.NewClient(cfg, logger)
	agent := collector.NewAgent(mqttClient, redisClient, cfg, logger)

	checker := health.NewChecker(mqttClient, redisClient, logger)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HealthPort), Handler: mux}

	go func() {
		logger.Info("Health endpoint listening", "port", cfg.HealthPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health server error", "error", err)
		}
	}()

	// Start blocks until ctx ends; an early return means the collector failed
	startErr := agent.Start(ctx)
	if startErr != nil {
		logger.Error("Collector failed", "error", startErr)
	} else {
		logger.Info("Shutdown signal received")
	}
	stop()

	if err := agent.Stop(); err != nil {
		logger.Error("Error stopping collector", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Lux collector stopped")
	return startErr
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
