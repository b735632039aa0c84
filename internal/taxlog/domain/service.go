package domain

import (
	"context"
	"errors"

	suretaxdomain "github.com/evertel/billrun/internal/suretax/domain"
	"gorm.io/gorm"
)

// Reconciler flattens a decoded response envelope into the four audit
// tables. One reconciliation pass is one transaction at the storage
// boundary; partial rows are never left behind.
type Reconciler interface {
	// Reconcile runs one pass in its own transaction.
	Reconcile(ctx context.Context, envelope *suretaxdomain.ResponseEnvelope, dataMonth, dataYear string, replace bool) error

	// ReconcileInTx runs one pass inside a caller-owned transaction, so
	// the submission side can commit tax results and source-row tagging
	// atomically.
	ReconcileInTx(ctx context.Context, tx *gorm.DB, envelope *suretaxdomain.ResponseEnvelope, dataMonth, dataYear string, replace bool) error

	// SaveRawResponse persists the raw response payload for later
	// re-reconciliation.
	SaveRawResponse(ctx context.Context, tx *gorm.DB, transactionID int64, body []byte) error

	// ReprocessCycle re-runs reconciliation for every stored response of
	// the cycle whose transaction is missing from the transaction log.
	ReprocessCycle(ctx context.Context, cycleLogID int64, replace bool) (int, error)
}

var ErrMissingTransactionID = errors.New("taxlog: envelope has no transaction id")
