package service

import (
	"context"
	"errors"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	statisticsdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/domain"
	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	pkgdb "github.com/ShaneWong116/CurrencyExchange-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) statisticsdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("statistics.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) GetOrCreateTx(
	ctx context.Context,
	tx *gorm.DB,
	statType statisticsdomain.StatType,
	referenceID snowflake.ID,
) (*statisticsdomain.CurrentStatistic, error) {
	if statType != statisticsdomain.StatTypeDashboard && statType != statisticsdomain.StatTypeChannel {
		return nil, statisticsdomain.ErrInvalidStatType
	}
	if statType == statisticsdomain.StatTypeChannel && referenceID == 0 {
		return nil, statisticsdomain.ErrInvalidReference
	}

	var row statisticsdomain.CurrentStatistic
	err := pkgdb.ForUpdate(tx.WithContext(ctx)).
		Where("stat_type = ? AND reference_id = ?", statType, referenceID).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	row = statisticsdomain.CurrentStatistic{
		ID:          s.genID.Generate(),
		StatType:    statType,
		ReferenceID: referenceID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *Service) AddTransactionTx(ctx context.Context, tx *gorm.DB, txn *transactiondomain.Transaction) error {
	return s.applyBothScopes(ctx, tx, txn, 1)
}

func (s *Service) RemoveTransactionTx(ctx context.Context, tx *gorm.DB, txn *transactiondomain.Transaction) error {
	return s.applyBothScopes(ctx, tx, txn, -1)
}

func (s *Service) ClearAllTx(ctx context.Context, tx *gorm.DB) error {
	return tx.WithContext(ctx).Exec(`DELETE FROM current_statistics`).Error
}

func (s *Service) DashboardSnapshot(ctx context.Context) (*statisticsdomain.CurrentStatistic, error) {
	return s.snapshot(ctx, statisticsdomain.StatTypeDashboard, 0)
}

func (s *Service) ChannelSnapshot(ctx context.Context, channelID snowflake.ID) (*statisticsdomain.CurrentStatistic, error) {
	if channelID == 0 {
		return nil, statisticsdomain.ErrInvalidReference
	}
	return s.snapshot(ctx, statisticsdomain.StatTypeChannel, channelID)
}

func (s *Service) snapshot(ctx context.Context, statType statisticsdomain.StatType, referenceID snowflake.ID) (*statisticsdomain.CurrentStatistic, error) {
	var row statisticsdomain.CurrentStatistic
	err := s.db.WithContext(ctx).
		Where("stat_type = ? AND reference_id = ?", statType, referenceID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Empty scope reads as all-zero counters.
			return &statisticsdomain.CurrentStatistic{StatType: statType, ReferenceID: referenceID}, nil
		}
		return nil, err
	}
	return &row, nil
}

func (s *Service) applyBothScopes(ctx context.Context, tx *gorm.DB, txn *transactiondomain.Transaction, sign int64) error {
	if txn == nil || !txn.Type.Valid() {
		return statisticsdomain.ErrInvalidReference
	}
	if err := s.apply(ctx, tx, statisticsdomain.StatTypeDashboard, 0, txn, sign); err != nil {
		return err
	}
	return s.apply(ctx, tx, statisticsdomain.StatTypeChannel, txn.ChannelID, txn, sign)
}

func (s *Service) apply(
	ctx context.Context,
	tx *gorm.DB,
	statType statisticsdomain.StatType,
	referenceID snowflake.ID,
	txn *transactiondomain.Transaction,
	sign int64,
) error {
	row, err := s.GetOrCreateTx(ctx, tx, statType, referenceID)
	if err != nil {
		return err
	}

	row.TransactionCount += sign
	switch txn.Type {
	case transactiondomain.TypeIncome:
		row.IncomeCount += sign
		row.RMBIncomeTotal = addSigned(row.RMBIncomeTotal, txn.RMBAmount, sign)
		row.HKDIncomeTotal = addSigned(row.HKDIncomeTotal, txn.HKDAmount, sign)
	case transactiondomain.TypeOutcome:
		row.OutcomeCount += sign
		row.RMBOutcomeTotal = addSigned(row.RMBOutcomeTotal, txn.RMBAmount, sign)
		row.HKDOutcomeTotal = addSigned(row.HKDOutcomeTotal, txn.HKDAmount, sign)
	case transactiondomain.TypeExchange:
		row.ExchangeCount += sign
	case transactiondomain.TypeInstantBuyout:
		row.InstantBuyoutCount += sign
		row.InstantProfitTotal = addSigned(row.InstantProfitTotal, txn.InstantProfit, sign)
	}

	return tx.WithContext(ctx).Model(&statisticsdomain.CurrentStatistic{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"transaction_count":    row.TransactionCount,
			"income_count":         row.IncomeCount,
			"outcome_count":        row.OutcomeCount,
			"exchange_count":       row.ExchangeCount,
			"instant_buyout_count": row.InstantBuyoutCount,
			"rmb_income_total":     row.RMBIncomeTotal,
			"rmb_outcome_total":    row.RMBOutcomeTotal,
			"hkd_income_total":     row.HKDIncomeTotal,
			"hkd_outcome_total":    row.HKDOutcomeTotal,
			"instant_profit_total": row.InstantProfitTotal,
			"updated_at":           s.clock.Now(),
		}).Error
}

func addSigned(total, amount decimal.Decimal, sign int64) decimal.Decimal {
	if sign < 0 {
		return total.Sub(amount)
	}
	return total.Add(amount)
}
