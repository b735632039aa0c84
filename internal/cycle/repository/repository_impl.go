package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/evertel/billrun/internal/cycle/domain"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type repository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRepository(p Params) domain.Repository {
	return &repository{
		db:  p.DB,
		log: p.Log.Named("cycle.repository"),
	}
}

const billDateLayout = "2006-01-02"

// beginCycleCall renders the cycle_begin invocation. Arguments follow the
// procedure signature: cycle_cd, bill_date, company_cd, test_billing, then the
// account array for manual cycles, then the restart offset.
func beginCycleCall(p domain.RunParams) (string, []interface{}) {
	billDate := p.BillDate.Format(billDateLayout)
	if p.IsManual() {
		return `SELECT cycle_begin(?, ?::date, ?, ?, ?::bigint[], 0)`,
			[]interface{}{p.CycleCode, billDate, p.CompanyCode, p.TestBilling, accountArrayLiteral(p.AccountIDs)}
	}
	return `SELECT cycle_begin(?, ?::date, ?, ?, 0)`,
		[]interface{}{p.CycleCode, billDate, p.CompanyCode, p.TestBilling}
}

// accountArrayLiteral renders account IDs in Postgres array literal form so
// they bind as a single bigint[] parameter.
func accountArrayLiteral(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (r *repository) BeginCycle(ctx context.Context, p domain.RunParams) (int64, error) {
	var cycleLogID int64
	query, args := beginCycleCall(p)
	err := r.db.WithContext(ctx).Raw(query, args...).Scan(&cycleLogID).Error
	if err != nil {
		return 0, fmt.Errorf("begin cycle: %w", err)
	}
	if cycleLogID == 0 {
		return 0, fmt.Errorf("begin cycle: cycle_begin returned no cycle_log_id")
	}
	return cycleLogID, nil
}

func (r *repository) BuildAccountAdjustments(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_get_account_adjustments(?)`, cycleLogID)
}

func (r *repository) BuildServiceAdjustments(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_get_service_adjustments(?)`, cycleLogID)
}

func (r *repository) BuildPayments(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_get_payments(?)`, cycleLogID)
}

func (r *repository) BuildServiceCharges(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_build_service_charges_v2(?, TRUE)`, cycleLogID)
}

func (r *repository) BuildSABCharges(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_build_sab_service_charges(?, TRUE)`, cycleLogID)
}

func (r *repository) BuildOneTimeCharges(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_calculate_one_time_charges(?)`, cycleLogID)
}

func (r *repository) AgeAccounts(ctx context.Context, billDate time.Time, late bool, companyCode string) error {
	return r.call(ctx, `SELECT age_accounts(0, ?::date, ?, ?)`,
		billDate.Format(billDateLayout), late, companyCode)
}

func (r *repository) ApplyFinanceCharges(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_calculate_finance_charges(?)`, cycleLogID)
}

func (r *repository) MarkCycleComplete(ctx context.Context, cycleLogID int64) error {
	res := r.db.WithContext(ctx).
		Exec(`UPDATE cycle_log SET run_cycle_complete = TRUE WHERE cycle_log_id = ?`, cycleLogID)
	if res.Error != nil {
		return fmt.Errorf("mark cycle complete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("mark cycle complete: cycle_log %d not found", cycleLogID)
	}
	return nil
}

func (r *repository) BuildPrepostRegister(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_build_prepost_register(?)`, cycleLogID)
}

func (r *repository) PostInvoices(ctx context.Context, cycleLogID int64) error {
	return r.call(ctx, `SELECT cycle_post_invoices(?, 0)`, cycleLogID)
}

func (r *repository) AllTaxDataImported(ctx context.Context, cycleLogID int64) (bool, error) {
	var missing int64
	err := r.db.WithContext(ctx).
		Raw(`
			SELECT COUNT(*)
			FROM cycle_invoice_status
			WHERE cycle_log_id = ?
			  AND tax_data_imported IS NOT TRUE`, cycleLogID).
		Scan(&missing).Error
	if err != nil {
		return false, fmt.Errorf("check tax data imported: %w", err)
	}
	return missing == 0, nil
}

// call runs a void stored procedure, discarding its result row.
func (r *repository) call(ctx context.Context, query string, args ...interface{}) error {
	if err := r.db.WithContext(ctx).Exec(query, args...).Error; err != nil {
		return fmt.Errorf("cycle procedure %q: %w", query, err)
	}
	r.log.Debug("procedure executed", zap.String("query", query))
	return nil
}
