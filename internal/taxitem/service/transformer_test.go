package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	taxitemdomain "github.com/evertel/billrun/internal/taxitem/domain"
)

func testRow(amt float64, aZip, zZip, transType string) taxitemdomain.ChargeRow {
	return taxitemdomain.ChargeRow{
		SourceID:      9001,
		AccountID:     1001,
		Amt:           amt,
		AZip:          aZip,
		ZZip:          zZip,
		SuretaxUnits:  1,
		TransTypeCode: transType,
		ChargeTypeCd:  "RC",
		FromDate:      time.Date(2026, 7, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestBuildSkipsZeroAmounts(t *testing.T) {
	tr := NewTransformer(zaptest.NewLogger(t))
	rows := []taxitemdomain.ChargeRow{
		testRow(0, "45414", "", "060101"),
		testRow(25, "45414", "", "060101"),
	}

	items, sourceIDs := tr.Build(taxitemdomain.VariantServiceCharge, 42, rows)
	require.Len(t, items, 1)
	require.Len(t, sourceIDs, 1)
	assert.Equal(t, int64(9001), sourceIDs[0])
	assert.Equal(t, 25.0, items[0].Revenue)
}

func TestBuildRevenueAndSitus(t *testing.T) {
	tr := NewTransformer(zaptest.NewLogger(t))

	cases := []struct {
		name        string
		row         taxitemdomain.ChargeRow
		wantRevenue float64
		wantSitus   string
		wantZip     string
		wantP2PZip  string
	}{
		{
			name:        "single point when only origin zip",
			row:         testRow(100, "45414", "", "060101"),
			wantRevenue: 100,
			wantSitus:   "04",
			wantZip:     "45414",
		},
		{
			name:        "single point when zips match",
			row:         testRow(100, "45414", "45414", "060101"),
			wantRevenue: 100,
			wantSitus:   "04",
			wantZip:     "45414",
		},
		{
			name:        "halved point to point on distinct zips",
			row:         testRow(100, "45414", "49503", "060101"),
			wantRevenue: 50,
			wantSitus:   "17",
			wantZip:     "45414",
			wantP2PZip:  "49503",
		},
		{
			name:        "excluded code keeps full revenue on distinct zips",
			row:         testRow(100, "45414", "49503", "070251"),
			wantRevenue: 100,
			wantSitus:   "17",
			wantZip:     "45414",
			wantP2PZip:  "49503",
		},
		{
			name:        "negative amounts submit absolute revenue",
			row:         testRow(-80, "45414", "", "060101"),
			wantRevenue: 80,
			wantSitus:   "04",
			wantZip:     "45414",
		},
		{
			name:        "destination zip stands in when origin missing",
			row:         testRow(60, "", "49503-1234", "060101"),
			wantRevenue: 60,
			wantSitus:   "04",
			wantZip:     "49503",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, _ := tr.Build(taxitemdomain.VariantServiceCharge, 42, []taxitemdomain.ChargeRow{tc.row})
			require.Len(t, items, 1)
			item := items[0]
			assert.Equal(t, tc.wantRevenue, item.Revenue)
			assert.Equal(t, tc.wantSitus, item.TaxSitusRule)
			assert.Equal(t, tc.wantZip, item.Zipcode)
			assert.Equal(t, tc.wantP2PZip, item.P2PZipcode)
			assert.Equal(t, tc.wantZip, item.BillingAddress.PostalCode)
		})
	}
}

func TestBuildCoercesSentinelTransTypes(t *testing.T) {
	tr := NewTransformer(zaptest.NewLogger(t))

	for _, sentinel := range []string{"000000", "999999"} {
		items, _ := tr.Build(taxitemdomain.VariantOneTime, 42, []taxitemdomain.ChargeRow{
			testRow(10, "45414", "", sentinel),
		})
		require.Len(t, items, 1)
		assert.Equal(t, "060101", items[0].TransTypeCode)
	}

	// Exclusion-set membership is decided on the original code, so a
	// sentinel halves even though the default code would too.
	items, _ := tr.Build(taxitemdomain.VariantOneTime, 42, []taxitemdomain.ChargeRow{
		testRow(100, "45414", "49503", "999999"),
	})
	require.Len(t, items, 1)
	assert.Equal(t, 50.0, items[0].Revenue)
}

func TestBuildInvoiceNumbersPerVariant(t *testing.T) {
	tr := NewTransformer(zaptest.NewLogger(t))
	row := testRow(10, "45414", "", "060101")

	items, _ := tr.Build(taxitemdomain.VariantOneTime, 42, []taxitemdomain.ChargeRow{row})
	assert.Equal(t, "1001-42", items[0].InvoiceNumber)

	items, _ = tr.Build(taxitemdomain.VariantSAB, 42, []taxitemdomain.ChargeRow{row})
	assert.Equal(t, "1001-42-SAB", items[0].InvoiceNumber)

	items, _ = tr.Build(taxitemdomain.VariantServiceCharge, 42, []taxitemdomain.ChargeRow{row})
	assert.Equal(t, "1001-42-RC", items[0].InvoiceNumber)
}

func TestBuildUsageItem(t *testing.T) {
	tr := NewTransformer(zaptest.NewLogger(t))
	row := testRow(-12.5, "45414", "49503", "whatever")

	items, _ := tr.Build(taxitemdomain.VariantUsage, 42, []taxitemdomain.ChargeRow{row})
	require.Len(t, items, 1)
	item := items[0]

	// Usage keeps the signed amount and carries fixed jurisdiction data.
	assert.Equal(t, -12.5, item.Revenue)
	assert.Equal(t, "210406", item.TransTypeCode)
	assert.Equal(t, "49546", item.Zipcode)
	assert.Equal(t, "04", item.TaxSitusRule)
	assert.Equal(t, 1, item.Units)
	assert.Equal(t, "1001-42-USG", item.InvoiceNumber)
}

func TestBuildTransDateFirstOfMonth(t *testing.T) {
	tr := NewTransformer(zaptest.NewLogger(t))
	items, _ := tr.Build(taxitemdomain.VariantServiceCharge, 42, []taxitemdomain.ChargeRow{
		testRow(10, "45414", "", "060101"),
	})
	require.Len(t, items, 1)
	assert.Equal(t, "2026-07-01T00:00:00", items[0].TransDate)
}
