package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/evertel/billrun/internal/clock"
	"github.com/evertel/billrun/internal/config"
	suretaxdomain "github.com/evertel/billrun/internal/suretax/domain"
)

var auditSchema = []string{
	`CREATE TABLE IF NOT EXISTS suretax_transaction_log (
		transaction_id BIGINT PRIMARY KEY,
		business_unit TEXT NOT NULL,
		client_number TEXT NOT NULL,
		client_tracking TEXT NOT NULL,
		data_month TEXT NOT NULL,
		data_year TEXT NOT NULL,
		response_code TEXT NOT NULL,
		document_id TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS suretax_item_log (
		suretax_item_log_id BIGINT PRIMARY KEY,
		invoice_number TEXT, item_id TEXT, line_number TEXT, customer_number TEXT,
		service_description TEXT, service_group_description TEXT,
		revenue REAL, fee REAL, tax REAL, tax_on_tax REAL,
		transaction_id BIGINT, transaction_type_cd TEXT, units INTEGER,
		geocode TEXT, city_nm TEXT, county_nm TEXT, state_cd TEXT,
		zip_code TEXT, plus4 TEXT, product_group TEXT, product_item TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS suretax_tax_log (
		suretax_tax_log_id BIGINT PRIMARY KEY,
		suretax_item_log_id BIGINT, tax_id TEXT, detailed_tax_desc TEXT,
		fee_rate REAL, percent_taxable REAL, tax_amt REAL,
		tax_authority_nm TEXT, tax_authority_type TEXT, tax_cat TEXT,
		tax_rate REAL, tax_type TEXT, tax_type_desc TEXT,
		tax_on_tax_amt REAL, tier INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS suretax_tax_calc_log (
		suretax_tax_log_id BIGINT, log_id TEXT,
		max_tax REAL, max_tax_base REAL, max_tax_base_non_taxable_revenue REAL,
		max_tax_non_taxable_amt REAL, max_tax_non_taxable_revenue REAL,
		min_tax_base REAL, min_tax_base_non_taxable_revenue REAL,
		round TEXT, tax REAL, tax_auth_id TEXT, tax_base REAL,
		tax_cat TEXT, tax_rate REAL, tax_source TEXT, tax_type TEXT,
		tier INTEGER, unit_base REAL
	)`,
	`CREATE TABLE IF NOT EXISTS suretax_post_response (
		transaction_id BIGINT PRIMARY KEY,
		created TIMESTAMP NOT NULL,
		response_body TEXT NOT NULL
	)`,
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range auditSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestReconciler(t *testing.T, db *gorm.DB) *Reconciler {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return &Reconciler{
		db:    db,
		log:   zaptest.NewLogger(t),
		genID: node,
		suretax: config.NewStaticSureTaxConfigHolder(config.SureTaxConfig{
			ClientNumber:  "000012345",
			ValidationKey: "secret-key",
			Environment:   config.EnvironmentCert,
		}),
		clock: clock.NewSystemClock(),
	}
}

func testEnvelope(transID int64) *suretaxdomain.ResponseEnvelope {
	return &suretaxdomain.ResponseEnvelope{
		Successful:     "Y",
		ResponseCode:   "9999",
		ClientTracking: "Cycle 42 - ServiceCharges",
		TransID:        transID,
		BusinessUnit:   "BCR-Service",
		DataMonth:      "7",
		DataYear:       "2026",
		GroupList: []suretaxdomain.Group{
			{
				LineNumber:     "1",
				InvoiceNumber:  "1001-42-RC",
				CustomerNumber: "1001",
				StateCode:      "OH",
				TaxList: []suretaxdomain.TaxItem{
					{
						ItemID:  "item-1",
						Revenue: 100,
						Tax:     7.25,
						TaxBreakdown: []suretaxdomain.TaxBreakdown{
							{
								ItemID: "item-1",
								TaxID:  "104",
								TaxAmt: 5.75,
								CalcLog: []suretaxdomain.CalcLogEntry{
									{LogID: "L1", Tax: 5.75, TaxBase: 100, TaxSource: "STATE  RATE\tTABLE"},
									{LogID: "L2", Tax: 0, TaxBase: 100, Tier: 1},
								},
							},
							{ItemID: "item-1", TaxID: "221", TaxAmt: 1.50},
						},
					},
				},
			},
			{
				LineNumber:     "2",
				InvoiceNumber:  "1002-42-RC",
				CustomerNumber: "1002",
				StateCode:      "OH",
				TaxList: []suretaxdomain.TaxItem{
					{
						ItemID:  "item-2",
						Revenue: 40,
						Tax:     2.30,
						TaxBreakdown: []suretaxdomain.TaxBreakdown{
							{ItemID: "item-2", TaxID: "104", TaxAmt: 2.30},
						},
					},
				},
			},
		},
	}
}

func countRows(t *testing.T, db *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM "+table).Scan(&n).Error)
	return n
}

func TestReconcileInsertsHierarchy(t *testing.T) {
	db := openTestDB(t)
	rec := newTestReconciler(t, db)
	ctx := context.Background()

	require.NoError(t, rec.Reconcile(ctx, testEnvelope(700123), "7", "2026", false))

	assert.Equal(t, int64(1), countRows(t, db, "suretax_transaction_log"))
	assert.Equal(t, int64(2), countRows(t, db, "suretax_item_log"))
	assert.Equal(t, int64(3), countRows(t, db, "suretax_tax_log"))
	assert.Equal(t, int64(2), countRows(t, db, "suretax_tax_calc_log"))

	var trans struct {
		ClientNumber string `gorm:"column:client_number"`
		BusinessUnit string `gorm:"column:business_unit"`
		DataMonth    string `gorm:"column:data_month"`
	}
	require.NoError(t, db.Raw(`SELECT client_number, business_unit, data_month FROM suretax_transaction_log`).Scan(&trans).Error)
	assert.Equal(t, "000012345", trans.ClientNumber)
	assert.Equal(t, "BCR-Service", trans.BusinessUnit)
	assert.Equal(t, "7", trans.DataMonth)

	// Group context is flattened onto every item row.
	var invoice string
	require.NoError(t, db.Raw(`SELECT invoice_number FROM suretax_item_log WHERE item_id = 'item-2'`).Scan(&invoice).Error)
	assert.Equal(t, "1002-42-RC", invoice)

	var source string
	require.NoError(t, db.Raw(`SELECT tax_source FROM suretax_tax_calc_log WHERE log_id = 'L1'`).Scan(&source).Error)
	assert.Equal(t, "STATE|RATE|TABLE", source)
}

func TestReconcileFallbacksWhenHeaderFieldsMissing(t *testing.T) {
	db := openTestDB(t)
	rec := newTestReconciler(t, db)

	envelope := testEnvelope(700124)
	envelope.BusinessUnit = ""
	envelope.DataMonth = ""
	envelope.DataYear = ""
	require.NoError(t, rec.Reconcile(context.Background(), envelope, "8", "2026", false))

	var trans struct {
		BusinessUnit string `gorm:"column:business_unit"`
		DataMonth    string `gorm:"column:data_month"`
		DataYear     string `gorm:"column:data_year"`
	}
	require.NoError(t, db.Raw(`SELECT business_unit, data_month, data_year FROM suretax_transaction_log`).Scan(&trans).Error)
	assert.Equal(t, "OSS", trans.BusinessUnit)
	assert.Equal(t, "8", trans.DataMonth)
	assert.Equal(t, "2026", trans.DataYear)
}

func TestReconcileSkipsExistingTransaction(t *testing.T) {
	db := openTestDB(t)
	rec := newTestReconciler(t, db)
	ctx := context.Background()

	require.NoError(t, rec.Reconcile(ctx, testEnvelope(700125), "7", "2026", false))
	require.NoError(t, rec.Reconcile(ctx, testEnvelope(700125), "7", "2026", false))

	assert.Equal(t, int64(1), countRows(t, db, "suretax_transaction_log"))
	assert.Equal(t, int64(2), countRows(t, db, "suretax_item_log"))
}

func TestReconcileReplaceRewritesRows(t *testing.T) {
	db := openTestDB(t)
	rec := newTestReconciler(t, db)
	ctx := context.Background()

	require.NoError(t, rec.Reconcile(ctx, testEnvelope(700126), "7", "2026", false))

	// Reprocess with a smaller envelope: old rows must be gone, not mixed in.
	envelope := testEnvelope(700126)
	envelope.GroupList = envelope.GroupList[:1]
	require.NoError(t, rec.Reconcile(ctx, envelope, "7", "2026", true))

	assert.Equal(t, int64(1), countRows(t, db, "suretax_transaction_log"))
	assert.Equal(t, int64(1), countRows(t, db, "suretax_item_log"))
	assert.Equal(t, int64(2), countRows(t, db, "suretax_tax_log"))
}

func TestReconcileDropsUnknownBreakdownItemID(t *testing.T) {
	db := openTestDB(t)
	rec := newTestReconciler(t, db)

	envelope := testEnvelope(700127)
	envelope.GroupList[0].TaxList[0].TaxBreakdown = append(
		envelope.GroupList[0].TaxList[0].TaxBreakdown,
		suretaxdomain.TaxBreakdown{ItemID: "item-ghost", TaxID: "999"},
	)
	require.NoError(t, rec.Reconcile(context.Background(), envelope, "7", "2026", false))

	// The stray entry is dropped, the rest of the batch lands.
	assert.Equal(t, int64(3), countRows(t, db, "suretax_tax_log"))
}

func TestReconcileRequiresTransactionID(t *testing.T) {
	db := openTestDB(t)
	rec := newTestReconciler(t, db)

	err := rec.Reconcile(context.Background(), &suretaxdomain.ResponseEnvelope{}, "7", "2026", false)
	assert.Error(t, err)
}
