// Package storagetest opens migrated in-memory SQLite databases for tests.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mentor-match/internal/config"
	"github.com/mentor-match/internal/logger"
	"github.com/mentor-match/internal/storage"
)

// MemoryDSN is a private in-memory database with foreign keys enforced.
const MemoryDSN = "file::memory:?_pragma=foreign_keys(1)&_time_format=sqlite"

// NewDB returns a fresh, migrated database closed at test cleanup.
func NewDB(t *testing.T) *storage.Database {
	t.Helper()

	db, err := storage.NewDatabase(&config.DatabaseConfig{
		Driver:       storage.DriverSQLite,
		DSN:          MemoryDSN,
		QueryTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.RunMigrations(context.Background(), logger.Nop()))
	return db
}
