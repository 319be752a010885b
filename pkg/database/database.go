// Package database provides PostgreSQL connection management with lifecycle
// coordination and a startup check that the migrated schema is present.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/intake/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// Option configures a database System.
type Option func(*database)

// WithTables makes startup fail with ErrSchemaMissing unless every named
// table exists.
func WithTables(tables ...string) Option {
	return func(d *database) {
		d.tables = append(d.tables, tables...)
	}
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	tables      []string
}

// New opens a pool with the configured limits. No connection is made until
// the startup hook registered by Start runs.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	d := &database{
		conn:        db,
		logger:      logger.With("system", "database"),
		connTimeout: cfg.ConnTimeoutDuration(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection", "required_tables", d.tables)

	lc.OnStartup("database", func() error {
		ctx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.conn.PingContext(ctx); err != nil {
			d.logger.Error("database ping failed", "error", err)
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}
		if err := d.checkSchema(ctx); err != nil {
			d.logger.Error("database schema check failed", "error", err)
			return err
		}

		d.logger.Info("database connection established")
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database connection closed")
	})

	return nil
}

func (d *database) checkSchema(ctx context.Context) error {
	for _, table := range d.tables {
		var name sql.NullString
		if err := d.conn.QueryRowContext(ctx, "SELECT to_regclass($1)::text", table).Scan(&name); err != nil {
			return fmt.Errorf("%w: %w", ErrNotReady, err)
		}
		if !name.Valid {
			return fmt.Errorf("%w: table %q", ErrSchemaMissing, table)
		}
	}
	return nil
}
