package domain

import (
	"context"
	"time"
)

// Variant identifies which cycle charge table a line item came from.
type Variant string

const (
	VariantOneTime           Variant = "one_time"
	VariantServiceCharge     Variant = "service_charge"
	VariantServiceAdjustment Variant = "service_adjustment"
	VariantSAB               Variant = "sab"
	VariantUsage             Variant = "usage"
)

// ChargeRow is one eligible billing record, as fetched. Zips may be empty;
// the transformer decides situs and apportionment from them.
type ChargeRow struct {
	SourceID      int64     `gorm:"column:source_id"`
	AccountID     int64     `gorm:"column:account_id"`
	Amt           float64   `gorm:"column:amt"`
	AZip          string    `gorm:"column:a_zip"`
	ZZip          string    `gorm:"column:z_zip"`
	SuretaxUnits  int       `gorm:"column:suretax_units"`
	TransTypeCode string    `gorm:"column:trans_type_code"`
	ChargeTypeCd  string    `gorm:"column:charge_type_cd"`
	FromDate      time.Time `gorm:"column:from_date"`
}

// Repository fetches eligible source records per variant. Eligibility is
// re-evaluated from durable state on every invocation: a row qualifies
// when it belongs to the cycle, has no prior tax-submission reference (or
// rerun is requested) and carries a transaction-type code.
type Repository interface {
	FetchOneTime(ctx context.Context, cycleLogID int64, rerun bool) ([]ChargeRow, error)
	FetchServiceCharges(ctx context.Context, cycleLogID int64, rerun bool) ([]ChargeRow, error)
	FetchServiceAdjustments(ctx context.Context, cycleLogID int64, rerun bool) ([]ChargeRow, error)
	FetchSAB(ctx context.Context, cycleLogID int64, rerun bool) ([]ChargeRow, error)
	FetchUsage(ctx context.Context, cycleLogID int64, rerun bool) ([]ChargeRow, error)
}
