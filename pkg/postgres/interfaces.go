package postgres

import (
	"context"
	"database/sql"
)

// Client is the database surface used by event history and the e2e checks
type Client interface {
	// Connect opens the pool, retrying while the database comes up
	Connect(ctx context.Context) error
	Disconnect() error

	Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

	// QueryRow scans the first row of query into dest; sql.ErrNoRows is
	// returned unwrapped when there is none
	QueryRow(ctx context.Context, query string, args []interface{}, dest ...interface{}) error

	Transaction(ctx context.Context, fn func(*sql.Tx) error) error

	// Migrate applies schema statements atomically
	Migrate(ctx context.Context, statements []string) error

	HealthCheck(ctx context.Context) (*HealthStatus, error)
}
