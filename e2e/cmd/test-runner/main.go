package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/saaga0h/circadian-platform/e2e/internal/checker"
	"github.com/saaga0h/circadian-platform/e2e/internal/executor"
	"github.com/saaga0h/circadian-platform/e2e/internal/observer"
	"github.com/saaga0h/circadian-platform/e2e/internal/reporter"
	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
	"github.com/saaga0h/circadian-platform/pkg/config"
	"github.com/saaga0h/circadian-platform/pkg/mqtt"
	"github.com/saaga0h/circadian-platform/pkg/postgres"
	"github.com/saaga0h/circadian-platform/pkg/redis"
)

func main() {
	scenarioPath := pflag.String("scenario", "", "Path to YAML scenario file (required)")
	outputDir := pflag.String("output-dir", "./test-output", "Output directory for test artifacts")
	settle := pflag.Duration("settle", 2*time.Second, "Time to wait before the first event")

	cfg := config.NewConfig()
	cfg.ServiceName = "e2e-player"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	if *scenarioPath == "" {
		fmt.Fprintf(os.Stderr, "Error: --scenario is required\n")
		pflag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	scen, err := scenario.LoadScenario(*scenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	connectCtx, connectCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connectCancel()

	mqttClient := mqtt.NewClient(cfg, logger)
	if err := mqttClient.Connect(connectCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to MQTT: %v\n", err)
		os.Exit(1)
	}
	defer mqttClient.Disconnect()

	redisClient := redis.NewClient(cfg, logger)
	if err := redisClient.Ping(connectCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to Redis: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var pgChecker *checker.PostgresChecker
	if cfg.EnableHistory {
		pgClient := postgres.NewClient(cfg, logger)
		if err := pgClient.Connect(connectCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to connect to Postgres: %v\n", err)
			os.Exit(1)
		}
		defer pgClient.Disconnect()
		pgChecker = checker.NewPostgresChecker(pgClient, logger)
	}

	obs := observer.NewObserver(cfg.MQTTAddress(), fmt.Sprintf("e2e-observer-%d", time.Now().Unix()), logger)
	if err := obs.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start observer: %v\n", err)
		os.Exit(1)
	}
	defer obs.Stop()

	player := executor.NewPlayer(mqttClient, scen.Setup.OutdoorLocation(), logger)
	runner := executor.NewRunner(player, obs, redisClient, pgChecker, logger)
	runner.Settle = *settle

	result, timelineEvents, err := runner.Run(ctx, scen)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Test execution failed: %v\n", err)
		os.Exit(1)
	}

	name := strings.TrimSuffix(filepath.Base(*scenarioPath), filepath.Ext(*scenarioPath))

	timeline := reporter.GenerateTimeline(result, timelineEvents)
	fmt.Println(timeline)

	timelinePath := filepath.Join(*outputDir, "timelines", name+".txt")
	if err := reporter.SaveTimeline(timeline, timelinePath); err != nil {
		logger.Warn("Failed to save timeline", "error", err)
	}

	capturePath := filepath.Join(*outputDir, "captures", name+".json")
	if err := obs.SaveCapture(capturePath); err != nil {
		logger.Warn("Failed to save capture", "error", err)
	}

	summaryPath := filepath.Join(*outputDir, "summaries", name+".json")
	if err := reporter.SaveSummary(result, summaryPath); err != nil {
		logger.Warn("Failed to save summary", "error", err)
	}

	if !result.Passed {
		os.Exit(1)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
