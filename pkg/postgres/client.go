package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	"github.com/saaga0h/circadian-platform/pkg/config"
)

// ErrNotConnected is returned by every query method before Connect succeeds
var ErrNotConnected = errors.New("postgres client not connected")

const connectAttempts = 5

// PostgresClient wraps a Postgres connection pool
type PostgresClient struct {
	db         *sql.DB
	config     *config.Config
	logger     *slog.Logger
	retryDelay time.Duration
}

// NewClient creates a new Postgres client
func NewClient(cfg *config.Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresClient{
		config:     cfg,
		logger:     logger,
		retryDelay: 2 * time.Second,
	}
}

// Connect opens the pool and pings it, retrying up to connectAttempts times
// so services can start alongside the database
func (c *PostgresClient) Connect(ctx context.Context) error {
	c.logger.Info("Connecting to Postgres",
		"host", c.config.PostgresHost,
		"port", c.config.PostgresPort,
		"database", c.config.PostgresDB)

	db, err := sql.Open("postgres", c.config.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(c.config.PostgresMaxConnections)
	db.SetMaxIdleConns(c.config.PostgresMaxIdleConnections)
	db.SetConnMaxLifetime(c.config.PostgresConnMaxLifetime)

	if err := c.ping(ctx, db); err != nil {
		db.Close()
		return err
	}

	c.db = db
	c.logger.Info("Connected to Postgres successfully")
	return nil
}

func (c *PostgresClient) ping(ctx context.Context, db *sql.DB) error {
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}

		c.logger.Warn("Postgres not ready, retrying",
			"attempt", attempt,
			"retry_in", c.retryDelay,
			"error", err)

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return fmt.Errorf("failed to ping postgres: %w", ctx.Err())
		}
	}
	return fmt.Errorf("failed to ping postgres after %d attempts: %w", connectAttempts, err)
}

// Disconnect closes the Postgres connection
func (c *PostgresClient) Disconnect() error {
	if c.db == nil {
		return nil
	}

	c.logger.Info("Disconnecting from Postgres")
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	c.db = nil
	return nil
}

// IsConnected returns whether the client is connected
func (c *PostgresClient) IsConnected() bool {
	return c.db != nil
}

func (c *PostgresClient) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db.ExecContext(ctx, query, args...)
}

func (c *PostgresClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db.QueryContext(ctx, query, args...)
}

func (c *PostgresClient) QueryRow(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	if c.db == nil {
		return ErrNotConnected
	}
	return c.db.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// Transaction executes fn inside a transaction, rolling back on error
func (c *PostgresClient) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if c.db == nil {
		return ErrNotConnected
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate applies idempotent schema statements in a single transaction
func (c *PostgresClient) Migrate(ctx context.Context, statements []string) error {
	return c.Transaction(ctx, func(tx *sql.Tx) error {
		for i, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
			}
		}
		c.logger.Info("Postgres schema ready", "statements", len(statements))
		return nil
	})
}
