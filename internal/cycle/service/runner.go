package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/evertel/billrun/internal/clock"
	"github.com/evertel/billrun/internal/config"
	"github.com/evertel/billrun/internal/cycle/domain"
	"github.com/evertel/billrun/internal/cyclemetrics"
	"github.com/evertel/billrun/internal/suretax"
	taxitemdomain "github.com/evertel/billrun/internal/taxitem/domain"
	taxitemservice "github.com/evertel/billrun/internal/taxitem/service"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Clock       clock.Clock
	Metrics     *cyclemetrics.Metrics
	Repo        domain.Repository
	Items       taxitemdomain.Repository
	Transformer *taxitemservice.Transformer
	Submitter   *suretax.Submitter
	SureTax     *config.SureTaxConfigHolder
}

// Runner drives one billing cycle end to end in a fixed stage order. Each
// stage either completes and is durably recorded before the next starts, or
// the run stops at the failed stage.
type Runner struct {
	log         *zap.Logger
	clock       clock.Clock
	metrics     *cyclemetrics.Metrics
	repo        domain.Repository
	items       taxitemdomain.Repository
	transformer *taxitemservice.Transformer
	submitter   *suretax.Submitter
	suretax     *config.SureTaxConfigHolder
}

func NewRunner(p Params) *Runner {
	return &Runner{
		log:         p.Log.Named("cycle.runner"),
		clock:       p.Clock,
		metrics:     p.Metrics,
		repo:        p.Repo,
		items:       p.Items,
		transformer: p.Transformer,
		submitter:   p.Submitter,
		suretax:     p.SureTax,
	}
}

// taxPhase binds one taxing stage to its fetcher and submission framing.
type taxPhase struct {
	stage   string
	phase   string
	kind    string
	variant taxitemdomain.Variant
	fetch   func(context.Context, int64, bool) ([]taxitemdomain.ChargeRow, error)
}

// Run executes the full cycle. The returned error names the stage that
// failed; everything before it is committed and a re-run picks up from
// durable state.
func (r *Runner) Run(ctx context.Context, params domain.RunParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	runID := uuid.NewString()
	log := r.log.With(
		zap.String("run_id", runID),
		zap.String("cycle_cd", params.CycleCode),
		zap.String("company_cd", params.CompanyCode),
		zap.Time("bill_date", params.BillDate),
		zap.Bool("test_billing", params.TestBilling),
	)
	defer r.metrics.Flush()

	client := suretax.NewClient(r.suretax.Get(), params.Dev)

	var cycleLogID int64
	err := r.runStage(ctx, log, "begin_cycle", func(ctx context.Context) error {
		id, err := r.repo.BeginCycle(ctx, params)
		if err != nil {
			return err
		}
		cycleLogID = id
		return nil
	})
	if err != nil {
		return err
	}
	log = log.With(zap.Int64("cycle_log_id", cycleLogID))
	log.Info("cycle opened")

	if err := r.runStage(ctx, log, "account_adjustments", func(ctx context.Context) error {
		return r.repo.BuildAccountAdjustments(ctx, cycleLogID)
	}); err != nil {
		return err
	}
	if err := r.runStage(ctx, log, "service_adjustments", func(ctx context.Context) error {
		return r.repo.BuildServiceAdjustments(ctx, cycleLogID)
	}); err != nil {
		return err
	}
	if err := r.taxStage(ctx, log, client, params, cycleLogID, taxPhase{
		stage:   "tax_service_adjustments",
		phase:   "ServiceAdjustments",
		kind:    "Adjustments",
		variant: taxitemdomain.VariantServiceAdjustment,
		fetch:   r.items.FetchServiceAdjustments,
	}); err != nil {
		return err
	}

	if err := r.runStage(ctx, log, "payments", func(ctx context.Context) error {
		return r.repo.BuildPayments(ctx, cycleLogID)
	}); err != nil {
		return err
	}

	if err := r.runStage(ctx, log, "service_charges", func(ctx context.Context) error {
		return r.repo.BuildServiceCharges(ctx, cycleLogID)
	}); err != nil {
		return err
	}
	if err := r.taxStage(ctx, log, client, params, cycleLogID, taxPhase{
		stage:   "tax_service_charges",
		phase:   "ServiceCharges",
		kind:    "Service",
		variant: taxitemdomain.VariantServiceCharge,
		fetch:   r.items.FetchServiceCharges,
	}); err != nil {
		return err
	}

	if err := r.runStage(ctx, log, "sab_charges", func(ctx context.Context) error {
		return r.repo.BuildSABCharges(ctx, cycleLogID)
	}); err != nil {
		return err
	}
	if err := r.taxStage(ctx, log, client, params, cycleLogID, taxPhase{
		stage:   "tax_sab_charges",
		phase:   "SABCharges",
		kind:    "SAB",
		variant: taxitemdomain.VariantSAB,
		fetch:   r.items.FetchSAB,
	}); err != nil {
		return err
	}

	if err := r.runStage(ctx, log, "one_time_charges", func(ctx context.Context) error {
		return r.repo.BuildOneTimeCharges(ctx, cycleLogID)
	}); err != nil {
		return err
	}
	if err := r.taxStage(ctx, log, client, params, cycleLogID, taxPhase{
		stage:   "tax_one_time_charges",
		phase:   "OneTimeCharges",
		kind:    "OneTime",
		variant: taxitemdomain.VariantOneTime,
		fetch:   r.items.FetchOneTime,
	}); err != nil {
		return err
	}

	if params.NoUsage {
		log.Info("stage skipped", zap.String("stage", "usage_charges"), zap.String("reason", "usage disabled for this run"))
	} else {
		// Usage rating happens upstream of the cycle run; the rows are
		// already present, so the build stage only taxes them.
		log.Info("stage complete", zap.String("stage", "usage_charges"), zap.String("note", "usage rows produced upstream"))
		if err := r.taxStage(ctx, log, client, params, cycleLogID, taxPhase{
			stage:   "tax_usage_charges",
			phase:   "UsageCharges",
			kind:    "Usage",
			variant: taxitemdomain.VariantUsage,
			fetch:   r.items.FetchUsage,
		}); err != nil {
			return err
		}
	}

	if err := r.runStage(ctx, log, "age_accounts_on_time", func(ctx context.Context) error {
		return r.repo.AgeAccounts(ctx, params.BillDate, false, params.CompanyCode)
	}); err != nil {
		return err
	}
	if err := r.runStage(ctx, log, "age_accounts_late", func(ctx context.Context) error {
		return r.repo.AgeAccounts(ctx, params.BillDate, true, params.CompanyCode)
	}); err != nil {
		return err
	}

	if err := r.runStage(ctx, log, "finance_charges", func(ctx context.Context) error {
		return r.repo.ApplyFinanceCharges(ctx, cycleLogID)
	}); err != nil {
		return err
	}

	if err := r.runStage(ctx, log, "mark_complete", func(ctx context.Context) error {
		return r.markComplete(ctx, log, params, cycleLogID)
	}); err != nil {
		return err
	}

	log.Info("cycle run finished")
	return nil
}

// markComplete flags the cycle done and, when every invoice has its tax
// detail in place (or taxing was disabled), posts invoices.
func (r *Runner) markComplete(ctx context.Context, log *zap.Logger, params domain.RunParams, cycleLogID int64) error {
	if err := r.repo.MarkCycleComplete(ctx, cycleLogID); err != nil {
		return err
	}

	ready := params.NoTaxes
	if !ready {
		imported, err := r.repo.AllTaxDataImported(ctx, cycleLogID)
		if err != nil {
			return err
		}
		ready = imported
	}
	if !ready {
		log.Warn("invoice posting deferred", zap.String("reason", "tax data incomplete for one or more invoices"))
		return nil
	}

	if err := r.repo.BuildPrepostRegister(ctx, cycleLogID); err != nil {
		return err
	}
	return r.repo.PostInvoices(ctx, cycleLogID)
}

// taxStage fetches the variant's eligible rows, transforms them and submits
// the batch. An empty batch short-circuits without touching the tax vendor.
func (r *Runner) taxStage(ctx context.Context, log *zap.Logger, client *suretax.Client, params domain.RunParams, cycleLogID int64, tp taxPhase) error {
	return r.runStage(ctx, log, tp.stage, func(ctx context.Context) error {
		if params.NoTaxes {
			log.Info("taxing disabled for this run", zap.String("stage", tp.stage))
			return nil
		}

		rows, err := tp.fetch(ctx, cycleLogID, params.RerunTaxes)
		if err != nil {
			return err
		}
		items, sourceIDs := r.transformer.Build(tp.variant, cycleLogID, rows)
		if len(items) == 0 {
			log.Info("nothing to tax", zap.String("stage", tp.stage), zap.Int("rows", len(rows)))
			return nil
		}

		envelope, err := r.submitter.Submit(ctx, suretax.SubmitContext{
			Client:      client,
			Kind:        tp.kind,
			Phase:       tp.phase,
			Variant:     tp.variant,
			CycleLogID:  cycleLogID,
			BillDate:    params.BillDate,
			TestBilling: params.TestBilling,
			Replace:     params.RerunTaxes,
			SourceIDs:   sourceIDs,
		}, items)
		if err != nil {
			return err
		}
		r.metrics.AddItemsSubmitted(tp.phase, len(items))
		log.Info("tax batch accepted",
			zap.String("stage", tp.stage),
			zap.Int("items", len(items)),
			zap.Int("groups", len(envelope.GroupList)),
			zap.Int64("transaction_id", envelope.TransID),
		)
		return nil
	})
}

// runStage wraps one stage with timing, metrics and a uniform status line.
func (r *Runner) runStage(ctx context.Context, log *zap.Logger, stage string, fn func(context.Context) error) error {
	start := r.clock.Now()
	r.metrics.IncStageRun(stage)

	err := fn(ctx)
	took := r.clock.Now().Sub(start)
	r.metrics.ObserveStageDuration(stage, took)

	if err != nil {
		r.metrics.IncStageError(stage)
		log.Error("stage failed",
			zap.String("stage", stage),
			zap.Duration("took", took),
			zap.Error(err),
		)
		return fmt.Errorf("stage %s: %w", stage, err)
	}
	log.Info("stage complete",
		zap.String("stage", stage),
		zap.Duration("took", took),
	)
	return nil
}
