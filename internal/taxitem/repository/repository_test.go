package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	taxitemdomain "github.com/evertel/billrun/internal/taxitem/domain"
)

var chargeSchema = []string{
	`CREATE TABLE cycle_one_time_charges (
		cycle_one_time_charge_id BIGINT PRIMARY KEY,
		cycle_log_id BIGINT, account_id BIGINT, amt REAL,
		orig_zip TEXT, dest_zip TEXT, suretax_units INTEGER,
		suretax_transaction_type_cd TEXT, suretax_transaction_id BIGINT,
		from_date TIMESTAMP
	)`,
	`CREATE TABLE cycle_usage_charges (
		cycle_usage_charge_id BIGINT PRIMARY KEY,
		cycle_log_id BIGINT, account_id BIGINT,
		usage_charge_type_cd TEXT, from_date TIMESTAMP
	)`,
	`CREATE TABLE cycle_usage_charge_details (
		cycle_usage_charge_detail_id BIGINT PRIMARY KEY,
		cycle_usage_charge_id BIGINT, amt REAL, suretax_transaction_id BIGINT
	)`,
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range chargeSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func TestFetchOneTimeEligibility(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Exec(`INSERT INTO cycle_one_time_charges VALUES
		(1, 42, 1001, 25.0, '45414', '', 1, '060101', NULL, '2026-07-01 00:00:00'),
		(2, 42, 1002, 30.0, '45414', '', 1, '060101', 700001, '2026-07-01 00:00:00'),
		(3, 42, 1003, 15.0, '45414', '', 1, NULL, NULL, '2026-07-01 00:00:00'),
		(4, 43, 1004, 10.0, '45414', '', 1, '060101', NULL, '2026-07-01 00:00:00')`).Error)

	rows, err := repo.FetchOneTime(ctx, 42, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].SourceID)
	assert.Equal(t, int64(1001), rows[0].AccountID)
	assert.Equal(t, "45414", rows[0].AZip)

	// Rerun re-qualifies already-submitted rows but never untyped ones.
	rows, err = repo.FetchOneTime(ctx, 42, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestFetchUsageOnlySplaCharges(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepository(db)

	require.NoError(t, db.Exec(`INSERT INTO cycle_usage_charges VALUES
		(10, 42, 1001, 'spla', '2026-07-01 00:00:00'),
		(11, 42, 1002, 'mou', '2026-07-01 00:00:00')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO cycle_usage_charge_details VALUES
		(100, 10, 5.0, NULL),
		(101, 11, 9.0, NULL)`).Error)

	rows, err := repo.FetchUsage(context.Background(), 42, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].SourceID)
	assert.Equal(t, 5.0, rows[0].Amt)
}

func TestTagSubmitted(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Exec(`INSERT INTO cycle_one_time_charges VALUES
		(1, 42, 1001, 25.0, '45414', '', 1, '060101', NULL, '2026-07-01 00:00:00'),
		(2, 42, 1002, 30.0, '45414', '', 1, '060101', NULL, '2026-07-01 00:00:00')`).Error)

	err := TagSubmitted(context.Background(), db, taxitemdomain.VariantOneTime, []int64{1}, 700002)
	require.NoError(t, err)

	var tagged, untagged sql.NullInt64
	require.NoError(t, db.Raw(`SELECT suretax_transaction_id FROM cycle_one_time_charges WHERE cycle_one_time_charge_id = 1`).Scan(&tagged).Error)
	require.NoError(t, db.Raw(`SELECT suretax_transaction_id FROM cycle_one_time_charges WHERE cycle_one_time_charge_id = 2`).Scan(&untagged).Error)
	require.True(t, tagged.Valid)
	assert.Equal(t, int64(700002), tagged.Int64)
	assert.False(t, untagged.Valid)
}

func TestTagSubmittedUnknownVariant(t *testing.T) {
	db := openTestDB(t)
	err := TagSubmitted(context.Background(), db, taxitemdomain.Variant("bogus"), []int64{1}, 1)
	assert.Error(t, err)
}

func TestTagSubmittedNoRowsIsNoOp(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, TagSubmitted(context.Background(), db, taxitemdomain.VariantOneTime, nil, 1))
}
