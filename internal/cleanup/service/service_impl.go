package service

import (
	"context"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	cleanupdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/cleanup/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/events"
	settlementdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/domain"
	statisticsdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/domain"
	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	pkgdb "github.com/ShaneWong116/CurrencyExchange-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	StatsSvc statisticsdomain.Service
	AuditSvc auditdomain.Service
	Outbox   *events.Outbox
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	statsSvc statisticsdomain.Service
	auditSvc auditdomain.Service
	outbox   *events.Outbox
}

func NewService(p Params) cleanupdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("cleanup.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		statsSvc: p.StatsSvc,
		auditSvc: p.AuditSvc,
		outbox:   p.Outbox,
	}
}

func (s *Service) Run(ctx context.Context, opts cleanupdomain.Options, operator actor.Actor) (cleanupdomain.Result, error) {
	if !operator.Valid() {
		return cleanupdomain.Result{}, cleanupdomain.ErrInvalidOperator
	}
	if opts.From.IsZero() || opts.To.IsZero() || opts.To.Before(opts.From) {
		return cleanupdomain.Result{}, cleanupdomain.ErrInvalidTimeRange
	}
	if len(opts.Categories) == 0 {
		return cleanupdomain.Result{}, cleanupdomain.ErrInvalidCategory
	}
	for _, category := range opts.Categories {
		if !category.Valid() {
			return cleanupdomain.Result{}, cleanupdomain.ErrInvalidCategory
		}
	}

	result := cleanupdomain.Result{Deleted: make(map[cleanupdomain.Category]int64)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Settlements unwind first so their restored transactions are
		// visible to the bills pass only as unsettled rows outside it.
		for _, category := range orderCategories(opts.Categories) {
			var count int64
			var err error
			switch category {
			case cleanupdomain.CategorySettlements:
				count, err = s.cleanSettlements(ctx, tx, opts)
			case cleanupdomain.CategoryBills:
				count, err = s.cleanBills(ctx, tx, opts)
			case cleanupdomain.CategoryDrafts:
				count, err = s.cleanDrafts(ctx, tx, opts)
			case cleanupdomain.CategoryImages:
				count, err = s.cleanImages(ctx, tx, opts)
			case cleanupdomain.CategoryAccounts:
				count, err = s.cleanAccounts(ctx, tx, opts)
			case cleanupdomain.CategoryChannels:
				count, err = s.cleanChannels(ctx, tx, opts)
			}
			if err != nil {
				return err
			}
			result.Deleted[category] = count
		}

		metadata := map[string]any{
			"from": opts.From.UTC().Format(time.RFC3339),
			"to":   opts.To.UTC().Format(time.RFC3339),
		}
		for category, count := range result.Deleted {
			metadata["deleted_"+string(category)] = count
		}
		if err := s.auditSvc.LogTx(ctx, tx, operator, "cleanup.completed", "cleanup", nil, metadata); err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type:    events.EventCleanupCompleted,
			Payload: metadata,
		})
	})
	if err != nil {
		return cleanupdomain.Result{}, err
	}
	return result, nil
}

// orderCategories fixes the cascade order regardless of request order.
func orderCategories(requested []cleanupdomain.Category) []cleanupdomain.Category {
	order := []cleanupdomain.Category{
		cleanupdomain.CategorySettlements,
		cleanupdomain.CategoryBills,
		cleanupdomain.CategoryDrafts,
		cleanupdomain.CategoryImages,
		cleanupdomain.CategoryAccounts,
		cleanupdomain.CategoryChannels,
	}
	selected := make(map[cleanupdomain.Category]bool, len(requested))
	for _, category := range requested {
		selected[category] = true
	}
	ordered := make([]cleanupdomain.Category, 0, len(requested))
	for _, category := range order {
		if selected[category] {
			ordered = append(ordered, category)
		}
	}
	return ordered
}

// cleanSettlements is the designed "undo a settlement" path: expenses and
// adjustment rows go, and every transaction in the batch returns to
// unsettled with its settlement reference cleared.
func (s *Service) cleanSettlements(ctx context.Context, tx *gorm.DB, opts cleanupdomain.Options) (int64, error) {
	var settlements []settlementdomain.Settlement
	err := pkgdb.ForUpdate(tx.WithContext(ctx)).
		Where("settlement_date >= ? AND settlement_date <= ?", opts.From.UTC(), opts.To.UTC()).
		Find(&settlements).Error
	if err != nil {
		return 0, err
	}

	for _, settlement := range settlements {
		if err := tx.WithContext(ctx).
			Where("settlement_id = ?", settlement.ID).
			Delete(&settlementdomain.SettlementExpense{}).Error; err != nil {
			return 0, err
		}
		if err := tx.WithContext(ctx).
			Where("settlement_id = ?", settlement.ID).
			Delete(&settlementdomain.CapitalAdjustment{}).Error; err != nil {
			return 0, err
		}
		if err := tx.WithContext(ctx).
			Where("settlement_id = ?", settlement.ID).
			Delete(&settlementdomain.HKDBalanceAdjustment{}).Error; err != nil {
			return 0, err
		}
		if err := tx.WithContext(ctx).
			Where("settlement_id = ?", settlement.ID).
			Delete(&settlementdomain.BalanceAdjustment{}).Error; err != nil {
			return 0, err
		}

		var batch []transactiondomain.Transaction
		if err := tx.WithContext(ctx).
			Where("settlement_id = ?", settlement.ID).
			Find(&batch).Error; err != nil {
			return 0, err
		}

		err = tx.WithContext(ctx).Model(&transactiondomain.Transaction{}).
			Where("settlement_id = ?", settlement.ID).
			Updates(map[string]any{
				"settlement_status": transactiondomain.SettlementStatusUnsettled,
				"settlement_id":     nil,
				"settlement_date":   nil,
				"updated_at":        s.clock.Now(),
			}).Error
		if err != nil {
			return 0, err
		}

		// Restored transactions rejoin the unsettled population, so the
		// live counters must regain their contributions.
		for i := range batch {
			if err := s.statsSvc.AddTransactionTx(ctx, tx, &batch[i]); err != nil {
				return 0, err
			}
		}

		if err := tx.WithContext(ctx).
			Delete(&settlementdomain.Settlement{}, "id = ?", settlement.ID).Error; err != nil {
			return 0, err
		}
	}

	return int64(len(settlements)), nil
}

// cleanBills removes unsettled transactions only; settled ones are
// untouched by this path. Ledger rows stay as historical snapshots, but the
// live counters drop the removed contributions.
func (s *Service) cleanBills(ctx context.Context, tx *gorm.DB, opts cleanupdomain.Options) (int64, error) {
	var bills []transactiondomain.Transaction
	err := pkgdb.ForUpdate(tx.WithContext(ctx)).
		Where("settlement_status = ? AND transaction_date >= ? AND transaction_date <= ?",
			transactiondomain.SettlementStatusUnsettled, opts.From.UTC(), opts.To.UTC()).
		Find(&bills).Error
	if err != nil {
		return 0, err
	}
	if len(bills) == 0 {
		return 0, nil
	}

	ids := make([]snowflake.ID, 0, len(bills))
	for i := range bills {
		ids = append(ids, bills[i].ID)
		if err := s.statsSvc.RemoveTransactionTx(ctx, tx, &bills[i]); err != nil {
			return 0, err
		}
	}

	if err := tx.WithContext(ctx).
		Where("transaction_id IN ?", ids).
		Delete(&transactiondomain.TransactionImage{}).Error; err != nil {
		return 0, err
	}

	res := tx.WithContext(ctx).Where("id IN ?", ids).Delete(&transactiondomain.Transaction{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *Service) cleanDrafts(ctx context.Context, tx *gorm.DB, opts cleanupdomain.Options) (int64, error) {
	var draftIDs []snowflake.ID
	err := tx.WithContext(ctx).Model(&transactiondomain.TransactionDraft{}).
		Where("created_at >= ? AND created_at <= ?", opts.From.UTC(), opts.To.UTC()).
		Pluck("id", &draftIDs).Error
	if err != nil {
		return 0, err
	}
	if len(draftIDs) == 0 {
		return 0, nil
	}

	if err := tx.WithContext(ctx).
		Where("draft_id IN ?", draftIDs).
		Delete(&transactiondomain.TransactionImage{}).Error; err != nil {
		return 0, err
	}

	res := tx.WithContext(ctx).Where("id IN ?", draftIDs).Delete(&transactiondomain.TransactionDraft{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// cleanImages removes orphans only: rows with neither a transaction nor a
// draft reference.
func (s *Service) cleanImages(ctx context.Context, tx *gorm.DB, opts cleanupdomain.Options) (int64, error) {
	res := tx.WithContext(ctx).
		Where("transaction_id IS NULL AND draft_id IS NULL AND created_at >= ? AND created_at <= ?",
			opts.From.UTC(), opts.To.UTC()).
		Delete(&transactiondomain.TransactionImage{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// cleanAccounts deletes only accounts nothing references; referenced ones
// are silently skipped, which is a filtering rule rather than a failure.
func (s *Service) cleanAccounts(ctx context.Context, tx *gorm.DB, opts cleanupdomain.Options) (int64, error) {
	res := tx.WithContext(ctx).Exec(
		`DELETE FROM accounts
		 WHERE created_at >= ? AND created_at <= ?
		   AND id NOT IN (SELECT DISTINCT account_id FROM transactions)
		   AND id NOT IN (SELECT DISTINCT account_id FROM transaction_drafts)`,
		opts.From.UTC(), opts.To.UTC(),
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *Service) cleanChannels(ctx context.Context, tx *gorm.DB, opts cleanupdomain.Options) (int64, error) {
	res := tx.WithContext(ctx).Exec(
		`DELETE FROM channels
		 WHERE created_at >= ? AND created_at <= ?
		   AND id NOT IN (SELECT DISTINCT channel_id FROM transactions)
		   AND id NOT IN (SELECT DISTINCT channel_id FROM transaction_drafts)`,
		opts.From.UTC(), opts.To.UTC(),
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
