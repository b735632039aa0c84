package service

import (
	"context"

	suretaxdomain "github.com/evertel/billrun/internal/suretax/domain"
	"go.uber.org/zap"
)

type storedResponse struct {
	TransactionID int64  `gorm:"column:transaction_id"`
	ResponseBody  string `gorm:"column:response_body"`
}

// ReprocessCycle re-drives reconciliation from stored raw payloads for
// every charge transaction of the cycle that is missing from the
// transaction log. Each transaction is its own pass: a failure rolls back
// that transaction only and the rest continue.
func (r *Reconciler) ReprocessCycle(ctx context.Context, cycleLogID int64, replace bool) (int, error) {
	rows, err := r.pendingResponses(ctx, cycleLogID)
	if err != nil {
		return 0, err
	}
	r.log.Info("stored responses pending reconciliation",
		zap.Int64("cycle_log_id", cycleLogID),
		zap.Int("count", len(rows)),
	)

	processed := 0
	for _, row := range rows {
		envelope, err := suretaxdomain.DecodeResponseBody([]byte(row.ResponseBody))
		if err != nil {
			r.log.Error("stored response is undecodable",
				zap.Int64("transaction_id", row.TransactionID),
				zap.Error(err),
			)
			continue
		}
		if err := r.Reconcile(ctx, envelope, "", "", replace); err != nil {
			r.log.Error("reprocess pass failed",
				zap.Int64("transaction_id", row.TransactionID),
				zap.Error(err),
			)
			continue
		}
		processed++
	}
	return processed, nil
}

// pendingResponses selects stored payloads whose transaction ids are
// referenced by the cycle's charge rows but absent from the transaction
// log.
func (r *Reconciler) pendingResponses(ctx context.Context, cycleLogID int64) ([]storedResponse, error) {
	var rows []storedResponse
	err := r.db.WithContext(ctx).Raw(
		`WITH combined_results AS (
			SELECT csc.suretax_transaction_id
			FROM cycle_service_charges csc
			LEFT JOIN suretax_transaction_log stl ON csc.suretax_transaction_id = stl.transaction_id
			WHERE csc.cycle_log_id = ?
			  AND csc.suretax_transaction_id IS NOT NULL AND csc.amt > 0 AND stl.transaction_id IS NULL
			UNION ALL
			SELECT csa.suretax_transaction_id
			FROM cycle_service_adjustments csa
			LEFT JOIN suretax_transaction_log stl ON csa.suretax_transaction_id = stl.transaction_id
			WHERE csa.cycle_log_id = ?
			  AND csa.suretax_transaction_id IS NOT NULL AND csa.amt > 0 AND stl.transaction_id IS NULL
			UNION ALL
			SELECT cotc.suretax_transaction_id
			FROM cycle_one_time_charges cotc
			LEFT JOIN suretax_transaction_log stl ON cotc.suretax_transaction_id = stl.transaction_id
			WHERE cotc.cycle_log_id = ?
			  AND cotc.suretax_transaction_id IS NOT NULL AND cotc.amt > 0 AND stl.transaction_id IS NULL
		)
		SELECT r.transaction_id, r.response_body
		FROM suretax_post_response r
		JOIN combined_results cr ON r.transaction_id = cr.suretax_transaction_id
		ORDER BY r.created`,
		cycleLogID, cycleLogID, cycleLogID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
