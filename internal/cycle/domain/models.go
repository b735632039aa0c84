package domain

import (
	"errors"
	"strings"
	"time"
)

// ManualCycleCode marks a run over an explicit account set instead of the
// company's full active population.
const ManualCycleCode = "MANUAL"

// RunParams describes one billing cycle execution.
type RunParams struct {
	CycleCode   string
	CompanyCode string
	BillDate    time.Time

	Dev         bool
	TestBilling bool
	RerunTaxes  bool
	NoTaxes     bool
	NoUsage     bool

	// AccountIDs is required (non-empty) exactly when the cycle is manual.
	AccountIDs []int64
}

func (p RunParams) IsManual() bool {
	return strings.EqualFold(p.CycleCode, ManualCycleCode)
}

// Validate runs before any external call.
func (p RunParams) Validate() error {
	if strings.TrimSpace(p.CycleCode) == "" {
		return ErrMissingCycleCode
	}
	if strings.TrimSpace(p.CompanyCode) == "" {
		return ErrMissingCompanyCode
	}
	if p.IsManual() && len(p.AccountIDs) == 0 {
		return ErrManualCycleRequiresAccounts
	}
	return nil
}

var (
	ErrMissingCycleCode            = errors.New("cycle: cycle code is required")
	ErrMissingCompanyCode          = errors.New("cycle: company code is required")
	ErrManualCycleRequiresAccounts = errors.New("cycle: manual cycles require a non-empty list of account ids")
)
