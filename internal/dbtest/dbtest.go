// Package dbtest opens migrated, seeded in-memory databases and inserts
// tenant reference rows for service and HTTP tests.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/lingoflow/internal/migration"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	"github.com/smallbiznis/lingoflow/internal/seed"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Env is one isolated database plus the tenant the test acts as.
type Env struct {
	DB    *gorm.DB
	Node  *snowflake.Node
	OrgID snowflake.ID
	Ctx   context.Context
}

// Open returns a fresh database named after the running test.
func Open(t *testing.T) *Env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared in-memory database alive and
	// serializes transactions.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migration.ApplySQLite(sqlDB))
	require.NoError(t, seed.EnsureReferenceData(context.Background(), db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	orgID := node.Generate()
	return &Env{
		DB:    db,
		Node:  node,
		OrgID: orgID,
		Ctx:   orgcontext.WithOrgID(context.Background(), orgID),
	}
}

// ForOrg returns a context acting as another tenant.
func (e *Env) ForOrg(orgID snowflake.ID) context.Context {
	return orgcontext.WithOrgID(context.Background(), orgID)
}

func (e *Env) insert(t *testing.T, table string, row map[string]any) snowflake.ID {
	t.Helper()
	id := e.Node.Generate()
	row["id"] = id
	if _, ok := row["org_id"]; !ok {
		row["org_id"] = e.OrgID
	}
	require.NoError(t, e.DB.Table(table).Create(row).Error)
	return id
}

func (e *Env) Service(t *testing.T, name string) snowflake.ID {
	t.Helper()
	return e.insert(t, "services", map[string]any{"name": name})
}

func (e *Env) Specialization(t *testing.T, name string) snowflake.ID {
	t.Helper()
	return e.insert(t, "specializations", map[string]any{"name": name})
}

func (e *Env) LanguagePair(t *testing.T, source, target string) snowflake.ID {
	t.Helper()
	return e.insert(t, "language_pairs", map[string]any{"source_language": source, "target_language": target})
}

func (e *Env) Manager(t *testing.T, name string) snowflake.ID {
	t.Helper()
	return e.insert(t, "managers", map[string]any{"name": name})
}

// Party inserts a vendor or client row; table is "vendors" or "clients".
func (e *Env) Party(t *testing.T, table, name string) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	return e.insert(t, table, map[string]any{"name": name, "created_at": now, "updated_at": now})
}

// PartyInOrg inserts a party owned by another tenant.
func (e *Env) PartyInOrg(t *testing.T, table, name string, orgID snowflake.ID) snowflake.ID {
	t.Helper()
	now := time.Now().UTC()
	return e.insert(t, table, map[string]any{"name": name, "org_id": orgID, "created_at": now, "updated_at": now})
}

// Count returns the number of rows of table matching the where clause.
func (e *Env) Count(t *testing.T, table, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.DB.Table(table).Where(where, args...).Count(&n).Error)
	return n
}

// UsageCount reads the stored counter of one scope registry row, or -1 when
// the row does not exist.
func (e *Env) UsageCount(t *testing.T, table, column string, partyID, valueID snowflake.ID) int64 {
	t.Helper()
	var counts []int64
	require.NoError(t, e.DB.Table(table).
		Where("party_id = ? AND "+column+" = ?", partyID, valueID).
		Pluck("usage_count", &counts).Error)
	if len(counts) == 0 {
		return -1
	}
	return counts[0]
}
