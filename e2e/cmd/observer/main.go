package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/saaga0h/circadian-platform/e2e/internal/observer"
	"github.com/saaga0h/circadian-platform/pkg/config"
)

// Records automation/# traffic to JSON snapshots until interrupted
func main() {
	outputDir := pflag.String("output-dir", "./test-output/captures", "Output directory for captures")
	snapshotInterval := pflag.Duration("snapshot-interval", 30*time.Second, "Snapshot interval")

	cfg := config.NewConfig()
	cfg.ServiceName = "e2e-observer"
	cfg.LoadFromEnv()
	cfg.LoadFromFlags()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	obs := observer.NewObserver(cfg.MQTTAddress(), fmt.Sprintf("%s-%d", cfg.ServiceName, time.Now().Unix()), logger)
	if err := obs.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start observer: %v\n", err)
		os.Exit(1)
	}
	defer obs.Stop()

	logger.Info("Observer running, press Ctrl+C to stop", "broker", cfg.MQTTAddress())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*snapshotInterval)
	defer ticker.Stop()

	for snapshot := 1; ; snapshot++ {
		select {
		case <-ticker.C:
			name := fmt.Sprintf("snapshot-%s-%03d.json", time.Now().Format("20060102-150405"), snapshot)
			if err := obs.SaveCapture(filepath.Join(*outputDir, name)); err != nil {
				logger.Warn("Failed to save snapshot", "error", err)
			}

		case <-sigChan:
			name := fmt.Sprintf("final-%s.json", time.Now().Format("20060102-150405"))
			if err := obs.SaveCapture(filepath.Join(*outputDir, name)); err != nil {
				logger.Warn("Failed to save final capture", "error", err)
			}
			return
		}
	}
}
