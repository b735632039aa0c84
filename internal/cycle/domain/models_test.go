package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	base := RunParams{
		CycleCode:   "GLC-MONTHLY",
		CompanyCode: "GLC",
		BillDate:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, base.Validate())

	missing := base
	missing.CycleCode = "  "
	assert.ErrorIs(t, missing.Validate(), ErrMissingCycleCode)

	missing = base
	missing.CompanyCode = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingCompanyCode)

	manual := base
	manual.CycleCode = "manual"
	assert.True(t, manual.IsManual())
	assert.ErrorIs(t, manual.Validate(), ErrManualCycleRequiresAccounts)

	manual.AccountIDs = []int64{1001, 1002}
	assert.NoError(t, manual.Validate())
}
