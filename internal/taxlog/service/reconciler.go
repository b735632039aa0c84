package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/evertel/billrun/internal/clock"
	"github.com/evertel/billrun/internal/config"
	suretaxdomain "github.com/evertel/billrun/internal/suretax/domain"
	taxlogdomain "github.com/evertel/billrun/internal/taxlog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ReconcilerParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	SureTax *config.SureTaxConfigHolder
	Clock   clock.Clock
}

type Reconciler struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	suretax *config.SureTaxConfigHolder
	clock   clock.Clock
}

func NewReconciler(p ReconcilerParam) taxlogdomain.Reconciler {
	return &Reconciler{
		db:      p.DB,
		log:     p.Log.Named("taxlog.reconciler"),
		genID:   p.GenID,
		suretax: p.SureTax,
		clock:   p.Clock,
	}
}

func (r *Reconciler) Reconcile(ctx context.Context, envelope *suretaxdomain.ResponseEnvelope, dataMonth, dataYear string, replace bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.ReconcileInTx(ctx, tx, envelope, dataMonth, dataYear, replace)
	})
}

func (r *Reconciler) ReconcileInTx(ctx context.Context, tx *gorm.DB, envelope *suretaxdomain.ResponseEnvelope, dataMonth, dataYear string, replace bool) error {
	if envelope == nil || envelope.TransID == 0 {
		return taxlogdomain.ErrMissingTransactionID
	}

	log := r.log.With(zap.Int64("transaction_id", envelope.TransID))

	if replace {
		if err := r.deleteExisting(ctx, tx, envelope.TransID); err != nil {
			return err
		}
	} else {
		exists, err := r.transactionExists(ctx, tx, envelope.TransID)
		if err != nil {
			return err
		}
		if exists {
			log.Info("transaction already reconciled, skipping")
			return nil
		}
	}

	if err := r.insertTransaction(ctx, tx, envelope, dataMonth, dataYear); err != nil {
		return err
	}

	itemRows, taxRows, calcRows, dropped, err := r.insertItemsAndTaxes(ctx, tx, envelope)
	if err != nil {
		return err
	}

	if n := len(envelope.ItemMessages); n > 0 {
		log.Debug("item messages not persisted", zap.Int("count", n))
	}
	log.Info("response reconciled",
		zap.Int("item_rows", itemRows),
		zap.Int("tax_rows", taxRows),
		zap.Int("calc_rows", calcRows),
		zap.Int("dropped_tax_rows", dropped),
	)
	return nil
}

// deleteExisting purges prior rows child-to-parent so a rerun is a clean
// replace, not an accumulation.
func (r *Reconciler) deleteExisting(ctx context.Context, tx *gorm.DB, transactionID int64) error {
	statements := []string{
		`DELETE FROM suretax_tax_calc_log
		 WHERE suretax_tax_log_id IN (
		   SELECT suretax_tax_log_id FROM suretax_tax_log
		   WHERE suretax_item_log_id IN (
		     SELECT suretax_item_log_id FROM suretax_item_log WHERE transaction_id = ?))`,
		`DELETE FROM suretax_tax_log
		 WHERE suretax_item_log_id IN (
		   SELECT suretax_item_log_id FROM suretax_item_log WHERE transaction_id = ?)`,
		`DELETE FROM suretax_item_log WHERE transaction_id = ?`,
		`DELETE FROM suretax_transaction_log WHERE transaction_id = ?`,
	}
	for _, stmt := range statements {
		if err := tx.WithContext(ctx).Exec(stmt, transactionID).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) transactionExists(ctx context.Context, tx *gorm.DB, transactionID int64) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM suretax_transaction_log WHERE transaction_id = ?`,
		transactionID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Reconciler) insertTransaction(ctx context.Context, tx *gorm.DB, envelope *suretaxdomain.ResponseEnvelope, dataMonth, dataYear string) error {
	businessUnit := envelope.BusinessUnit
	if businessUnit == "" {
		businessUnit = "OSS"
	}
	month := envelope.DataMonth
	if month == "" {
		month = dataMonth
	}
	year := envelope.DataYear
	if year == "" {
		year = dataYear
	}

	row := taxlogdomain.TransactionLog{
		TransactionID:  envelope.TransID,
		BusinessUnit:   businessUnit,
		ClientNumber:   r.suretax.Get().ClientNumber,
		ClientTracking: envelope.ClientTracking,
		DataMonth:      month,
		DataYear:       year,
		ResponseCode:   envelope.ResponseCode,
	}
	return tx.WithContext(ctx).Create(&row).Error
}

func (r *Reconciler) insertItemsAndTaxes(ctx context.Context, tx *gorm.DB, envelope *suretaxdomain.ResponseEnvelope) (itemRows, taxRows, calcRows, dropped int, err error) {
	// ItemID -> generated surrogate, valid for this pass only.
	itemLogIDs := make(map[string]int64)

	for _, group := range envelope.GroupList {
		for _, item := range group.TaxList {
			itemLogID := r.genID.Generate().Int64()
			row := taxlogdomain.ItemLog{
				ItemLogID:               itemLogID,
				InvoiceNumber:           group.InvoiceNumber,
				ItemID:                  item.ItemID,
				LineNumber:              group.LineNumber,
				CustomerNumber:          group.CustomerNumber,
				ServiceDescription:      item.ServiceDescription,
				ServiceGroupDescription: item.ServiceGroupDescription,
				Revenue:                 item.Revenue,
				Fee:                     item.Fee,
				Tax:                     item.Tax,
				TaxOnTax:                item.TaxOnTax,
				TransactionID:           envelope.TransID,
				TransactionTypeCd:       item.TransTypeCode,
				Units:                   item.Units,
				Geocode:                 item.Geocode,
				CityName:                item.CityName,
				CountyName:              item.CountyName,
				StateCd:                 item.StateCode,
				ZipCode:                 item.ZipCode,
				Plus4:                   item.Plus4,
				ProductGroup:            item.ProductGroup,
				ProductItem:             item.ProductItem,
			}
			if err = tx.WithContext(ctx).Create(&row).Error; err != nil {
				return
			}
			itemRows++
			if item.ItemID != "" {
				itemLogIDs[item.ItemID] = itemLogID
			}

			for _, breakdown := range item.TaxBreakdown {
				parentID := itemLogID
				if breakdown.ItemID != "" {
					mapped, ok := itemLogIDs[breakdown.ItemID]
					if !ok {
						// Malformed response linkage, not a local bug:
						// the rest of the batch remains trustworthy.
						dropped++
						r.log.Warn("dropping tax entry with unknown item id",
							zap.Int64("transaction_id", envelope.TransID),
							zap.String("item_id", breakdown.ItemID),
						)
						continue
					}
					parentID = mapped
				}

				taxLogID := r.genID.Generate().Int64()
				taxRow := taxlogdomain.TaxLog{
					TaxLogID:         taxLogID,
					ItemLogID:        parentID,
					TaxID:            breakdown.TaxID,
					DetailedTaxDesc:  breakdown.DetailedTaxDesc,
					FeeRate:          breakdown.FeeRate,
					PercentTaxable:   breakdown.PercentTaxable,
					TaxAmt:           breakdown.TaxAmt,
					TaxAuthorityName: breakdown.TaxAuthorityName,
					TaxAuthorityType: breakdown.TaxAuthorityType,
					TaxCat:           breakdown.TaxCat,
					TaxRate:          breakdown.TaxRate,
					TaxType:          breakdown.TaxType,
					TaxTypeDesc:      breakdown.TaxTypeDesc,
					TaxOnTaxAmt:      breakdown.TaxOnTaxAmt,
					Tier:             breakdown.Tier,
				}
				if err = tx.WithContext(ctx).Create(&taxRow).Error; err != nil {
					return
				}
				taxRows++

				for _, calc := range breakdown.CalcLog {
					calcRow := taxlogdomain.TaxCalcLog{
						TaxLogID:                    taxLogID,
						LogID:                       calc.LogID,
						MaxTax:                      calc.MaxTax,
						MaxTaxBase:                  calc.MaxTaxBase,
						MaxTaxBaseNonTaxableRevenue: calc.MaxTaxBaseNonTaxableRevenue,
						MaxTaxNonTaxableAmt:         calc.MaxTaxNonTaxableAmount,
						MaxTaxNonTaxableRevenue:     calc.MaxTaxNonTaxableRevenue,
						MinTaxBase:                  calc.MinTaxBase,
						MinTaxBaseNonTaxableRevenue: calc.MinTaxBaseNonTaxableRevenue,
						Round:                       calc.Round,
						Tax:                         calc.Tax,
						TaxAuthID:                   calc.TaxAuthID,
						TaxBase:                     calc.TaxBase,
						TaxCat:                      calc.TaxCat,
						TaxRate:                     calc.TaxRate,
						TaxSource:                   normalizeTaxSource(calc.TaxSource),
						TaxType:                     calc.TaxType,
						Tier:                        calc.Tier,
						UnitBase:                    calc.UnitBase,
					}
					if err = tx.WithContext(ctx).Create(&calcRow).Error; err != nil {
						return
					}
					calcRows++
				}
			}
		}
	}
	return
}

func (r *Reconciler) SaveRawResponse(ctx context.Context, tx *gorm.DB, transactionID int64, body []byte) error {
	row := taxlogdomain.PostResponse{
		TransactionID: transactionID,
		Created:       r.clock.Now(),
		ResponseBody:  string(body),
	}
	return tx.WithContext(ctx).Create(&row).Error
}

// normalizeTaxSource collapses whitespace-joined source tokens to a single
// separator-joined string for storage.
func normalizeTaxSource(raw string) string {
	return strings.Join(strings.Fields(raw), "|")
}
