// Package postgres holds the connection pool and error helpers shared by the
// Postgres repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Overland-East-Bay/ride-api/internal/ports/out/repoerr"
)

// SQLSTATE codes the repositories react to.
const (
	// DataExceptionClass covers values the server refused to store or convert,
	// such as a NUL byte in text ("22021").
	DataExceptionClass        = "22"
	InvalidTextRepresentation = "22P02"
)

type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	// ConnectTimeout bounds the initial ping. Zero means 5s.
	ConnectTimeout time.Duration
}

// NewPool parses dsn, applies opts and verifies the database is reachable.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("missing postgres dsn")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// AsPgError unwraps err to a *pgconn.PgError when the server reported one.
func AsPgError(err error) (*pgconn.PgError, bool) {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// RepoError wraps err for operation op. Data exceptions reported by the server
// are serialization failures; everything else is a backend failure.
func RepoError(op string, err error) error {
	if pe, ok := AsPgError(err); ok {
		if pe.Code == InvalidTextRepresentation || strings.HasPrefix(pe.Code, DataExceptionClass) {
			return repoerr.Serialization(op, err)
		}
	}
	return repoerr.Backend(op, err)
}
