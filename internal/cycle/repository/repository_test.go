package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evertel/billrun/internal/cycle/domain"
)

func TestBeginCycleCallArgumentOrder(t *testing.T) {
	query, args := beginCycleCall(domain.RunParams{
		CycleCode:   "GLC-MONTHLY",
		CompanyCode: "GLC",
		BillDate:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		TestBilling: false,
	})

	require.Equal(t, `SELECT cycle_begin(?, ?::date, ?, ?, 0)`, query)
	require.Equal(t, []interface{}{"GLC-MONTHLY", "2026-07-01", "GLC", false}, args)
}

func TestBeginCycleCallManualBindsAccountArray(t *testing.T) {
	query, args := beginCycleCall(domain.RunParams{
		CycleCode:   domain.ManualCycleCode,
		CompanyCode: "GLC",
		BillDate:    time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		TestBilling: true,
		AccountIDs:  []int64{1001, 1002, 1003},
	})

	require.Equal(t, `SELECT cycle_begin(?, ?::date, ?, ?, ?::bigint[], 0)`, query)
	require.Equal(t, []interface{}{"MANUAL", "2026-07-01", "GLC", true, "{1001,1002,1003}"}, args)
}

func TestAccountArrayLiteral(t *testing.T) {
	require.Equal(t, "{42}", accountArrayLiteral([]int64{42}))
	require.Equal(t, "{1001,1002}", accountArrayLiteral([]int64{1001, 1002}))
}
