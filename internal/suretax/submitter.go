package suretax

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/evertel/billrun/internal/suretax/domain"
	taxitemdomain "github.com/evertel/billrun/internal/taxitem/domain"
	taxitemrepo "github.com/evertel/billrun/internal/taxitem/repository"
	taxlogdomain "github.com/evertel/billrun/internal/taxlog/domain"
	"github.com/evertel/billrun/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	responseGroupDetailed = "01"
	responseTypeDetailed  = "D5"

	returnFileCodeProduction = "0"
	// Test billing files under a distinct return code so production tax
	// filings are never polluted by test runs.
	returnFileCodeTest = "Q"
)

// SubmitContext carries the per-phase framing for one submission batch.
type SubmitContext struct {
	Client      *Client
	Kind        string
	Phase       string
	Variant     taxitemdomain.Variant
	CycleLogID  int64
	BillDate    time.Time
	TestBilling bool
	Replace     bool
	SourceIDs   []int64
}

type SubmitterParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Reconciler taxlogdomain.Reconciler
}

// Submitter posts one batch of items and durably records the response
// before returning control: the next phase must never run against a
// database state where tax results exist only in memory.
type Submitter struct {
	db         *gorm.DB
	log        *zap.Logger
	reconciler taxlogdomain.Reconciler
}

func NewSubmitter(p SubmitterParam) *Submitter {
	return &Submitter{
		db:         p.DB,
		log:        p.Log.Named("suretax.submitter"),
		reconciler: p.Reconciler,
	}
}

// Submit requires a non-empty item list: callers skip submission entirely
// when there is nothing to tax.
func (s *Submitter) Submit(ctx context.Context, sc SubmitContext, items []domain.Item) (*domain.ResponseEnvelope, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("suretax: empty item list for %s", sc.Phase)
	}

	totalRevenue := 0.0
	for _, item := range items {
		totalRevenue += item.Revenue
	}

	returnFileCode := returnFileCodeProduction
	if sc.TestBilling {
		returnFileCode = returnFileCodeTest
	}

	dataMonth := strconv.Itoa(int(sc.BillDate.Month()))
	dataYear := strconv.Itoa(sc.BillDate.Year())

	req := domain.Request{
		BusinessUnit:      "BCR-" + sc.Kind,
		DataMonth:         dataMonth,
		DataYear:          dataYear,
		TotalRevenue:      totalRevenue,
		ClientTracking:    fmt.Sprintf("Cycle %d - %s", sc.CycleLogID, sc.Phase),
		IndustryExemption: "",
		ResponseGroup:     responseGroupDetailed,
		ResponseType:      responseTypeDetailed,
		ReturnFileCode:    returnFileCode,
		ItemList:          items,
	}

	result, err := sc.Client.CalculateTax(ctx, req)
	if err != nil {
		return nil, err
	}
	envelope := result.Envelope
	if envelope.IsRejection() {
		return nil, domain.NewHeaderError(envelope.ResponseCode, envelope.HeaderMessage)
	}

	// Reconciliation, raw payload and source-row tagging share one
	// commit; restart-after-crash then resubmits or skips purely from
	// durable state.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.reconciler.ReconcileInTx(ctx, tx, envelope, dataMonth, dataYear, sc.Replace); err != nil {
			return err
		}
		if err := s.reconciler.SaveRawResponse(ctx, tx, envelope.TransID, result.RawBody); err != nil {
			return err
		}
		return taxitemrepo.TagSubmitted(ctx, tx, sc.Variant, sc.SourceIDs, envelope.TransID)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, fmt.Errorf("suretax: transaction %d already recorded: %w", envelope.TransID, err)
		}
		return nil, fmt.Errorf("suretax: persist response for transaction %d: %w", envelope.TransID, err)
	}

	s.log.Info("batch submitted",
		zap.String("phase", sc.Phase),
		zap.Int64("cycle_log_id", sc.CycleLogID),
		zap.Int("items", len(items)),
		zap.Float64("total_revenue", totalRevenue),
		zap.String("response_code", envelope.ResponseCode),
		zap.Int64("transaction_id", envelope.TransID),
		zap.String("total_tax", envelope.TotalTax),
	)
	return envelope, nil
}
