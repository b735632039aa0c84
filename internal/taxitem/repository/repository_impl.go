package repository

import (
	"context"
	"fmt"

	taxitemdomain "github.com/evertel/billrun/internal/taxitem/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxitemdomain.Repository {
	return &repository{db: db}
}

func (r *repository) FetchOneTime(ctx context.Context, cycleLogID int64, rerun bool) ([]taxitemdomain.ChargeRow, error) {
	var rows []taxitemdomain.ChargeRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			c1.cycle_one_time_charge_id AS source_id,
			c1.account_id,
			c1.amt,
			c1.orig_zip AS a_zip,
			c1.dest_zip AS z_zip,
			c1.suretax_units,
			c1.suretax_transaction_type_cd AS trans_type_code,
			c1.from_date
		 FROM cycle_one_time_charges c1
		 WHERE c1.cycle_log_id = ?
		   AND (c1.suretax_transaction_id IS NULL OR ? = TRUE)
		   AND c1.suretax_transaction_type_cd IS NOT NULL`,
		cycleLogID, rerun,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FetchServiceCharges(ctx context.Context, cycleLogID int64, rerun bool) ([]taxitemdomain.ChargeRow, error) {
	var rows []taxitemdomain.ChargeRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			csc.cycle_service_charge_id AS source_id,
			csc.account_id,
			csc.amt,
			csc.a_zip,
			csc.z_zip,
			csc.suretax_units,
			csc.suretax_transaction_type_cd AS trans_type_code,
			csc.charge_type_cd,
			csc.from_date
		 FROM cycle_service_charges csc
		 WHERE csc.cycle_log_id = ?
		   AND (csc.suretax_transaction_id IS NULL OR ? = TRUE)
		   AND csc.suretax_transaction_type_cd IS NOT NULL`,
		cycleLogID, rerun,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FetchServiceAdjustments(ctx context.Context, cycleLogID int64, rerun bool) ([]taxitemdomain.ChargeRow, error) {
	var rows []taxitemdomain.ChargeRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			csa.cycle_service_adjustment_id AS source_id,
			csa.account_id,
			csa.amt,
			csa.a_zip,
			csa.z_zip,
			csa.suretax_units,
			csa.suretax_transaction_type_cd AS trans_type_code,
			csa.charge_type_cd,
			csa.from_date
		 FROM cycle_service_adjustments csa
		 WHERE csa.cycle_log_id = ?
		   AND (csa.suretax_transaction_id IS NULL OR ? = TRUE)
		   AND csa.suretax_transaction_type_cd IS NOT NULL`,
		cycleLogID, rerun,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FetchSAB(ctx context.Context, cycleLogID int64, rerun bool) ([]taxitemdomain.ChargeRow, error) {
	var rows []taxitemdomain.ChargeRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			csra.cycle_sab_rate_adjustment_id AS source_id,
			csra.account_id,
			csra.amt,
			csra.a_zip,
			csra.z_zip,
			csra.suretax_units,
			csra.suretax_transaction_type_cd AS trans_type_code,
			csra.from_date
		 FROM cycle_sab_rate_adjustments csra
		 WHERE csra.cycle_log_id = ?
		   AND (csra.suretax_transaction_id IS NULL OR ? = TRUE)
		   AND csra.suretax_transaction_type_cd IS NOT NULL`,
		cycleLogID, rerun,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FetchUsage(ctx context.Context, cycleLogID int64, rerun bool) ([]taxitemdomain.ChargeRow, error) {
	var rows []taxitemdomain.ChargeRow
	err := r.db.WithContext(ctx).Raw(
		`SELECT
			cucd.cycle_usage_charge_detail_id AS source_id,
			cuc.account_id,
			cucd.amt,
			cuc.from_date
		 FROM cycle_usage_charges cuc
		 JOIN cycle_usage_charge_details cucd USING (cycle_usage_charge_id)
		 WHERE cuc.cycle_log_id = ?
		   AND cuc.usage_charge_type_cd = 'spla'
		   AND (cucd.suretax_transaction_id IS NULL OR ? = TRUE)`,
		cycleLogID, rerun,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// chargeTables maps each variant to the table and key column holding its
// tax-submission reference.
var chargeTables = map[taxitemdomain.Variant]struct {
	table string
	pk    string
}{
	taxitemdomain.VariantOneTime:           {"cycle_one_time_charges", "cycle_one_time_charge_id"},
	taxitemdomain.VariantServiceCharge:     {"cycle_service_charges", "cycle_service_charge_id"},
	taxitemdomain.VariantServiceAdjustment: {"cycle_service_adjustments", "cycle_service_adjustment_id"},
	taxitemdomain.VariantSAB:               {"cycle_sab_rate_adjustments", "cycle_sab_rate_adjustment_id"},
	taxitemdomain.VariantUsage:             {"cycle_usage_charge_details", "cycle_usage_charge_detail_id"},
}

// TagSubmitted records the transaction id on the source rows, inside the
// caller's transaction. This write must share a commit with the
// reconciliation insert so a restart can trust the eligibility predicate.
func TagSubmitted(ctx context.Context, tx *gorm.DB, variant taxitemdomain.Variant, sourceIDs []int64, transactionID int64) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	meta, ok := chargeTables[variant]
	if !ok {
		return fmt.Errorf("taxitem: unknown variant %q", variant)
	}
	stmt := fmt.Sprintf(
		`UPDATE %s SET suretax_transaction_id = ? WHERE %s IN ?`,
		meta.table, meta.pk,
	)
	return tx.WithContext(ctx).Exec(stmt, transactionID, sourceIDs).Error
}
