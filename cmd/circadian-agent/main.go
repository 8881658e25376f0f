package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saaga0h/circadian-platform/internal/circadian"
	"github.com/saaga0h/circadian-platform/internal/light"
	"github.com/saaga0h/circadian-platform/pkg/config"
	"github.com/saaga0h/circadian-platform/pkg/health"
	"github.com/saaga0h/circadian-platform/pkg/mqtt"
	"github.com/saaga0h/circadian-platform/pkg/postgres"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

func main() {
	// Load configuration with hierarchy: defaults → env → flags
	cfg := config.NewConfig()
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting circadian lighting agent",
		"service_name", cfg.ServiceName,
		"mqtt_broker", cfg.MQTTAddress(),
		"redis_host", cfg.RedisAddress(),
		"history", cfg.EnableHistory,
		"log_level", cfg.LogLevel)

	profiles, err := loadProfiles(cfg, logger)
	if err != nil {
		logger.Error("Failed to load lighting profiles", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	mqttClient := mqtt.NewClient(cfg, logger)
	redisClient := redis.NewClient(cfg, logger)
	healthChecker := health.NewChecker(mqttClient, redisClient, logger)

	var history light.Recorder
	var pgClient postgres.Client
	if cfg.EnableHistory {
		pgClient = postgres.NewClient(cfg, logger)
		if err := pgClient.Connect(ctx); err != nil {
			logger.Error("Failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		h, err := light.NewHistory(ctx, pgClient)
		if err != nil {
			logger.Error("Failed to prepare event history", "error", err)
			os.Exit(1)
		}
		history = h
		healthChecker.WithPostgres(pgClient)
	}

	agent, err := light.NewAgent(mqttClient, redisClient, history, profiles, cfg, logger)
	if err != nil {
		logger.Error("Failed to create agent", "error", err)
		os.Exit(1)
	}
	healthChecker.WithStatus(agent.Status)

	httpServer := startHealthServer(cfg.HealthPort, healthChecker, logger)

	agentErr := make(chan error, 1)
	go func() {
		if err := agent.Start(ctx); err != nil {
			logger.Error("Agent error", "error", err)
			agentErr <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received (SIGTERM/SIGINT)")
	case err := <-agentErr:
		logger.Error("Agent failed", "error", err)
	}

	logger.Info("Initiating graceful shutdown")
	cancel()

	if err := agent.Stop(); err != nil {
		logger.Error("Error stopping agent", "error", err)
	}
	if pgClient != nil {
		if err := pgClient.Disconnect(); err != nil {
			logger.Error("Error closing postgres connection", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down health server", "error", err)
	}

	logger.Info("Circadian agent shutdown complete")
}

// loadProfiles reads the profile file when configured, otherwise every area
// uses the defaults
func loadProfiles(cfg *config.Config, logger *slog.Logger) (circadian.Profiles, error) {
	if cfg.ProfilePath == "" {
		logger.Info("No profile file configured, using default curve")
		return circadian.Profiles{Default: circadian.DefaultConfig()}, nil
	}

	profiles, err := circadian.LoadProfiles(cfg.ProfilePath)
	if err != nil {
		return circadian.Profiles{}, err
	}
	logger.Info("Loaded lighting profiles",
		"path", cfg.ProfilePath,
		"area_profiles", len(profiles.Areas))
	return profiles, nil
}

func startHealthServer(port int, checker *health.Checker, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", checker.HandlerFunc())
	mux.HandleFunc("/health/detailed", checker.DetailedHandlerFunc())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Starting health check server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()

	return server
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
