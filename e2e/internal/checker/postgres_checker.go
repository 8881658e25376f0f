package checker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/saaga0h/circadian-platform/e2e/internal/scenario"
	"github.com/saaga0h/circadian-platform/pkg/postgres"
)

// PostgresChecker validates history rows with single-value queries
type PostgresChecker struct {
	client postgres.Client
	logger *slog.Logger
}

// NewPostgresChecker wraps a connected postgres client
func NewPostgresChecker(client postgres.Client, logger *slog.Logger) *PostgresChecker {
	return &PostgresChecker{client: client, logger: logger}
}

// Check runs the expectation's query and matches the first column of the
// first row
func (p *PostgresChecker) Check(ctx context.Context, exp scenario.Expectation) (bool, string, interface{}) {
	p.logger.Debug("Executing query", "query", exp.PostgresQuery)

	var result interface{}
	err := p.client.QueryRow(ctx, exp.PostgresQuery, nil, &result)
	if errors.Is(err, sql.ErrNoRows) {
		return false, "query returned no rows", nil
	}
	if err != nil {
		return false, fmt.Sprintf("query failed: %v", err), nil
	}
	result = normalizeScanned(result)

	p.logger.Debug("Query result", "result", result, "expected", exp.PostgresExpected)

	if ok, reason := MatchesExpectation(result, exp.PostgresExpected); !ok {
		return false, reason, result
	}
	return true, "", result
}

// normalizeScanned turns driver []byte values (NUMERIC, TEXT) into numbers
// or strings
func normalizeScanned(v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if f, err := strconv.ParseFloat(string(b), 64); err == nil {
		return f
	}
	return string(b)
}
