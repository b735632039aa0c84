package domain

import (
	"context"
	"time"
)

// Repository is the boundary to the billing database: every stage that the
// database owns (stored procedures and cycle bookkeeping) lives behind it.
type Repository interface {
	// BeginCycle opens a cycle_log row for the run and returns its id. For
	// manual cycles the explicit account set is forwarded to the procedure.
	BeginCycle(ctx context.Context, p RunParams) (int64, error)

	BuildAccountAdjustments(ctx context.Context, cycleLogID int64) error
	BuildServiceAdjustments(ctx context.Context, cycleLogID int64) error
	BuildPayments(ctx context.Context, cycleLogID int64) error
	BuildServiceCharges(ctx context.Context, cycleLogID int64) error
	BuildSABCharges(ctx context.Context, cycleLogID int64) error
	BuildOneTimeCharges(ctx context.Context, cycleLogID int64) error

	// AgeAccounts advances delinquency buckets. late=false ages the current
	// population, late=true picks up the late-fee pass.
	AgeAccounts(ctx context.Context, billDate time.Time, late bool, companyCode string) error

	ApplyFinanceCharges(ctx context.Context, cycleLogID int64) error

	MarkCycleComplete(ctx context.Context, cycleLogID int64) error
	BuildPrepostRegister(ctx context.Context, cycleLogID int64) error
	PostInvoices(ctx context.Context, cycleLogID int64) error

	// AllTaxDataImported reports whether every invoice in the cycle has its
	// tax detail loaded, which gates invoice posting when taxing ran.
	AllTaxDataImported(ctx context.Context, cycleLogID int64) (bool, error)
}
