package service

import (
	"fmt"
	"math"
	"time"

	"github.com/evertel/billrun/internal/address"
	suretaxdomain "github.com/evertel/billrun/internal/suretax/domain"
	taxitemdomain "github.com/evertel/billrun/internal/taxitem/domain"
	"go.uber.org/zap"
)

const (
	// Reserved "unknown" transaction-type codes, coerced to the default
	// before submission.
	sentinelUnknownZero = "000000"
	sentinelUnknownNine = "999999"
	defaultTransType    = "060101"

	situsPointToPoint = "17"
	situsSinglePoint  = "04"

	usageTransType  = "210406"
	usagePostalCode = "49546"

	transDateLayout = "2006-01-02T15:04:05"
)

// halvingExclusions lists transaction-type codes whose revenue is never
// apportioned between origin and destination jurisdictions.
var halvingExclusions = map[string]bool{
	"070251": true,
	"070226": true,
	"070249": true,
}

// Transformer projects eligible charge rows into SureTax request items.
type Transformer struct {
	log *zap.Logger
}

func NewTransformer(log *zap.Logger) *Transformer {
	return &Transformer{log: log.Named("taxitem.transformer")}
}

// Build converts charge rows for one variant. Zero-amount rows are never
// transformed. The returned source ids align one-to-one with the items so
// the submitter can tag the originating rows.
func (t *Transformer) Build(variant taxitemdomain.Variant, cycleLogID int64, rows []taxitemdomain.ChargeRow) ([]suretaxdomain.Item, []int64) {
	items := make([]suretaxdomain.Item, 0, len(rows))
	sourceIDs := make([]int64, 0, len(rows))

	for _, row := range rows {
		if row.Amt == 0 {
			continue
		}

		var item suretaxdomain.Item
		if variant == taxitemdomain.VariantUsage {
			item = t.buildUsageItem(cycleLogID, row)
		} else {
			item = t.buildChargeItem(variant, cycleLogID, row)
		}
		items = append(items, item)
		sourceIDs = append(sourceIDs, row.SourceID)
	}
	return items, sourceIDs
}

func (t *Transformer) buildChargeItem(variant taxitemdomain.Variant, cycleLogID int64, row taxitemdomain.ChargeRow) suretaxdomain.Item {
	useP2P := row.AZip != "" && row.ZZip != "" && row.AZip != row.ZZip

	revenue := math.Abs(row.Amt)
	if useP2P && !halvingExclusions[row.TransTypeCode] {
		revenue /= 2
	}

	transTypeCode := row.TransTypeCode
	if transTypeCode == sentinelUnknownZero || transTypeCode == sentinelUnknownNine {
		t.log.Warn("unknown transaction type code, substituting default",
			zap.String("trans_type_code", transTypeCode),
			zap.Int64("account_id", row.AccountID),
		)
		transTypeCode = defaultTransType
	}

	zipCode := truncateZip(row.AZip)
	if zipCode == "" {
		zipCode = truncateZip(row.ZZip)
	}

	situsRule := situsSinglePoint
	p2pZip := ""
	if useP2P {
		situsRule = situsPointToPoint
		p2pZip = truncateZip(row.ZZip)
	}

	item := suretaxdomain.Item{
		LineNumber:           fmt.Sprintf("%d", row.SourceID),
		InvoiceNumber:        invoiceNumber(variant, cycleLogID, row),
		CustomerNumber:       fmt.Sprintf("%d", row.AccountID),
		Revenue:              revenue,
		Units:                row.SuretaxUnits,
		UnitType:             "00",
		Seconds:              "0",
		TaxSitusRule:         situsRule,
		TransTypeCode:        transTypeCode,
		SalesTypeCode:        "B",
		RegulatoryCode:       "02",
		TransDate:            transDate(row.FromDate),
		Zipcode:              zipCode,
		Plus4:                "",
		P2PZipcode:           p2pZip,
		P2PPlus4:             "",
		TaxExemptionCodeList: []string{},
		TaxIncludedCode:      "0",
		BillingAddress:       address.Resolve(zipCode),
	}
	return item
}

// buildUsageItem has no jurisdictional address of its own: fixed
// transaction type, single-point situs and the usage remittance zip.
func (t *Transformer) buildUsageItem(cycleLogID int64, row taxitemdomain.ChargeRow) suretaxdomain.Item {
	return suretaxdomain.Item{
		LineNumber:           fmt.Sprintf("%d", row.SourceID),
		InvoiceNumber:        fmt.Sprintf("%d-%d-USG", row.AccountID, cycleLogID),
		CustomerNumber:       fmt.Sprintf("%d", row.AccountID),
		Revenue:              row.Amt,
		Units:                1,
		UnitType:             "00",
		Seconds:              "0",
		TaxSitusRule:         situsSinglePoint,
		TransTypeCode:        usageTransType,
		SalesTypeCode:        "B",
		RegulatoryCode:       "02",
		TransDate:            transDate(row.FromDate),
		Zipcode:              usagePostalCode,
		Plus4:                "",
		P2PZipcode:           "",
		P2PPlus4:             "",
		TaxExemptionCodeList: []string{},
		TaxIncludedCode:      "0",
		BillingAddress:       address.Resolve(usagePostalCode),
	}
}

func invoiceNumber(variant taxitemdomain.Variant, cycleLogID int64, row taxitemdomain.ChargeRow) string {
	switch variant {
	case taxitemdomain.VariantOneTime:
		return fmt.Sprintf("%d-%d", row.AccountID, cycleLogID)
	case taxitemdomain.VariantSAB:
		return fmt.Sprintf("%d-%d-SAB", row.AccountID, cycleLogID)
	default:
		return fmt.Sprintf("%d-%d-%s", row.AccountID, cycleLogID, row.ChargeTypeCd)
	}
}

// transDate normalizes the effective date to the first of its month,
// midnight.
func transDate(fromDate time.Time) string {
	return time.Date(fromDate.Year(), fromDate.Month(), 1, 0, 0, 0, 0, time.UTC).Format(transDateLayout)
}

func truncateZip(zip string) string {
	if len(zip) > 5 {
		return zip[:5]
	}
	return zip
}
