package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/mentor-match/internal/config"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type Database struct {
	*sqlx.DB
	driver       string
	queryTimeout time.Duration
}

func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlx.Connect(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// one writer; also keeps :memory: databases alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(time.Hour)
	}

	return Wrap(db, cfg.Driver, cfg.QueryTimeout), nil
}

// Wrap adapts an open handle. A non-positive timeout disables per-query deadlines.
func Wrap(db *sqlx.DB, driver string, queryTimeout time.Duration) *Database {
	return &Database{DB: db, driver: driver, queryTimeout: queryTimeout}
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.DB.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.DB.Close()
}

// Optimize refreshes planner statistics.
func (d *Database) Optimize(ctx context.Context) error {
	stmt := "ANALYZE"
	if d.driver == DriverSQLite {
		stmt = "PRAGMA optimize"
	}
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	if _, err := d.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to optimize database: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction, committing on success and rolling back on
// error or panic. Panics are rethrown.
func (d *Database) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) (err error) {
	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

func (d *Database) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.queryTimeout)
}
