// Package postgres implements the keep-region cache on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/lib/pq"

	"github.com/kozaktomas/photo-collage/internal/config"
	"github.com/kozaktomas/photo-collage/internal/database"
)

// connectTimeout bounds the initial ping.
const connectTimeout = 10 * time.Second

// Pool wraps a PostgreSQL connection pool.
type Pool struct {
	db     *sql.DB
	logger *log.Logger
}

var (
	globalPool *Pool
	poolMu     sync.RWMutex
)

// NewPool opens and pings a PostgreSQL connection pool. A nil logger
// discards migration logs.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig, logger *log.Logger) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db, logger: logger.With("component", "postgres")}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}
	return nil
}

// GetGlobalPool returns the pool opened by Initialize, or nil.
func GetGlobalPool() *Pool {
	poolMu.RLock()
	defer poolMu.RUnlock()
	return globalPool
}

func (p *Pool) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

func (p *Pool) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

func (p *Pool) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// Initialize opens the pool, applies migrations and registers the
// keep-region repository as the database backend.
func Initialize(ctx context.Context, cfg *config.DatabaseConfig, logger *log.Logger) error {
	pool, err := NewPool(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	poolMu.Lock()
	globalPool = pool
	poolMu.Unlock()

	repo := NewKeepRegionRepository(pool)
	database.RegisterPostgresBackend(func() database.KeepRegionWriter { return repo })
	return nil
}
