package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bwmarrin/snowflake"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestIncrementUpserts(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectExec(`INSERT INTO "vendor_services" .* ON CONFLICT \("party_id","service_id"\) DO UPDATE SET "usage_count"=vendor_services\.usage_count \+ 1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := Provide().Increment(context.Background(), db, partydomain.KindVendor, partydomain.DimensionService,
		snowflake.ID(1), snowflake.ID(2), snowflake.ID(3), time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementReportsFloor(t *testing.T) {
	t.Run("counter above zero", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE client_language_pairs\s+SET usage_count = CASE .* WHERE party_id = \$1 AND language_pair_id = \$2 AND usage_count > 0`).
			WithArgs(snowflake.ID(5), snowflake.ID(6)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		n, err := Provide().Decrement(context.Background(), db, partydomain.KindClient, partydomain.DimensionLanguagePair, 5, 6)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("counter already zero", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE vendor_specializations`).
			WithArgs(snowflake.ID(5), snowflake.ID(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		n, err := Provide().Decrement(context.Background(), db, partydomain.KindVendor, partydomain.DimensionSpecialization, 5, 7)
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExistsCountsRegistryRows(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM vendor_services WHERE party_id = \$1 AND service_id = \$2`).
		WithArgs(snowflake.ID(1), snowflake.ID(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := Provide().Exists(context.Background(), db, partydomain.KindVendor, partydomain.DimensionService, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecountLocksRowThenCountsInPlace(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT "usage_count" FROM "vendor_services" WHERE party_id = \$1 AND service_id = \$2 FOR UPDATE`).
		WithArgs(snowflake.ID(1), snowflake.ID(2)).
		WillReturnRows(sqlmock.NewRows([]string{"usage_count"}).AddRow(4))
	mock.ExpectExec(`UPDATE vendor_services\s+SET usage_count = \(\s*SELECT COUNT\(1\) FROM vendor_price_lists p\s+WHERE p\.party_id = vendor_services\.party_id AND p\.service_id = vendor_services\.service_id\s*\)\s+WHERE party_id = \$1 AND service_id = \$2`).
		WithArgs(snowflake.ID(1), snowflake.ID(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := Provide().Recount(context.Background(), db, partydomain.KindVendor, partydomain.DimensionService, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureEntryLeavesExistingRows(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()

	mock.ExpectExec(`INSERT INTO "client_specializations" .* ON CONFLICT \("party_id","specialization_id"\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := Provide().EnsureEntry(context.Background(), db, partydomain.KindClient, partydomain.DimensionSpecialization,
		snowflake.ID(1), snowflake.ID(2), snowflake.ID(3), time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
