// Package dbtest opens throwaway databases for store tests.
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/modmail-dev/modmail/internal/database/migrations"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // sqlite driver
)

// NewDB opens an in-memory database with every migration applied.
// The database is closed when the test finishes.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)

	// Every connection to :memory: is a separate database
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Run(t.Context(), db, zap.NewNop()))

	return db
}
