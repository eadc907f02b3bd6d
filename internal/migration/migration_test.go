package migration

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSQLiteStatementsRewriteTypes(t *testing.T) {
	stmts, err := SQLiteStatements()
	require.NoError(t, err)
	require.NotEmpty(t, stmts)

	for _, stmt := range stmts {
		assert.NotContains(t, stmt, "TIMESTAMPTZ")
		assert.NotContains(t, stmt, "JSONB")
	}
}

func TestApplySQLiteIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migration_idempotent?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, ApplySQLite(sqlDB))
	require.NoError(t, ApplySQLite(sqlDB))

	var tables []string
	require.NoError(t, db.Raw(`SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`).Scan(&tables).Error)
	joined := strings.Join(tables, ",")
	for _, want := range []string{"vendor_price_lists", "client_services", "project_status_history", "job_financial_lines"} {
		assert.Contains(t, joined, want)
	}
}
