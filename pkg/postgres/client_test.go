package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/saaga0h/circadian-platform/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *PostgresClient {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewClient(config.NewConfig(), logger).(*PostgresClient)
}

func TestClient_NotConnected(t *testing.T) {
	c := testClient()
	ctx := context.Background()

	assert.False(t, c.IsConnected())

	_, err := c.Exec(ctx, "SELECT 1")
	assert.True(t, errors.Is(err, ErrNotConnected))

	_, err = c.Query(ctx, "SELECT 1")
	assert.True(t, errors.Is(err, ErrNotConnected))

	var n int
	err = c.QueryRow(ctx, "SELECT $1::int", []interface{}{1}, &n)
	assert.True(t, errors.Is(err, ErrNotConnected))

	err = c.Migrate(ctx, []string{"SELECT 1"})
	assert.True(t, errors.Is(err, ErrNotConnected))

	assert.NoError(t, c.Disconnect())
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := testClient()

	status, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "not connected", status.Error)
	assert.Equal(t, "circadian", status.Database)
}

func TestConnect_GivesUpWhenCancelled(t *testing.T) {
	cfg := config.NewConfig()
	cfg.PostgresHost = "127.0.0.1"
	cfg.PostgresPort = 1
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	c := NewClient(cfg, logger).(*PostgresClient)
	c.retryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.False(t, c.IsConnected())
}
