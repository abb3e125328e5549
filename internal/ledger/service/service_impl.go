package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
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

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Apply(
	ctx context.Context,
	channelID snowflake.ID,
	currency ledgerdomain.Currency,
	date time.Time,
	flow ledgerdomain.Flow,
	amount decimal.Decimal,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.ApplyTx(ctx, tx, channelID, currency, date, flow, amount)
	})
}

func (s *Service) ApplyTx(
	ctx context.Context,
	tx *gorm.DB,
	channelID snowflake.ID,
	currency ledgerdomain.Currency,
	date time.Time,
	flow ledgerdomain.Flow,
	amount decimal.Decimal,
) error {
	if channelID == 0 {
		return ledgerdomain.ErrInvalidChannel
	}
	if err := ledgerdomain.ValidateMovement(currency, flow, amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	if date.IsZero() {
		return ledgerdomain.ErrInvalidDate
	}

	row, err := s.lockOrCreateRow(ctx, tx, channelID, currency, clock.DateOf(date))
	if err != nil {
		return retryable(err)
	}

	delta := ledgerdomain.Delta(currency, flow, amount)
	updates := map[string]any{
		"current_balance": row.CurrentBalance.Add(delta),
		"updated_at":      s.clock.Now(),
	}
	if flow == ledgerdomain.FlowIncome {
		updates["income_amount"] = row.IncomeAmount.Add(amount)
	} else {
		updates["outcome_amount"] = row.OutcomeAmount.Add(amount)
	}

	if err := tx.WithContext(ctx).Model(&ledgerdomain.ChannelBalance{}).
		Where("id = ?", row.ID).
		Updates(updates).Error; err != nil {
		return retryable(err)
	}
	return nil
}

func (s *Service) Revert(
	ctx context.Context,
	channelID snowflake.ID,
	currency ledgerdomain.Currency,
	date time.Time,
	flow ledgerdomain.Flow,
	amount decimal.Decimal,
) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.RevertTx(ctx, tx, channelID, currency, date, flow, amount)
	})
}

// RevertTx undoes a movement against the row for the transaction's original
// date. Reverting against "today" instead would corrupt the carry-forward
// chain of every later day. A missing row means it was already cleaned up;
// that is a no-op.
func (s *Service) RevertTx(
	ctx context.Context,
	tx *gorm.DB,
	channelID snowflake.ID,
	currency ledgerdomain.Currency,
	date time.Time,
	flow ledgerdomain.Flow,
	amount decimal.Decimal,
) error {
	if channelID == 0 {
		return ledgerdomain.ErrInvalidChannel
	}
	if err := ledgerdomain.ValidateMovement(currency, flow, amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	if date.IsZero() {
		return ledgerdomain.ErrInvalidDate
	}

	var row ledgerdomain.ChannelBalance
	err := pkgdb.ForUpdate(tx.WithContext(ctx)).
		Where("channel_id = ? AND currency = ? AND balance_date = ?", channelID, currency, clock.DateOf(date)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return retryable(err)
	}

	delta := ledgerdomain.Delta(currency, flow, amount)
	updates := map[string]any{
		"current_balance": row.CurrentBalance.Sub(delta),
		"updated_at":      s.clock.Now(),
	}
	if flow == ledgerdomain.FlowIncome {
		updates["income_amount"] = row.IncomeAmount.Sub(amount)
	} else {
		updates["outcome_amount"] = row.OutcomeAmount.Sub(amount)
	}

	if err := tx.WithContext(ctx).Model(&ledgerdomain.ChannelBalance{}).
		Where("id = ?", row.ID).
		Updates(updates).Error; err != nil {
		return retryable(err)
	}
	return nil
}

func (s *Service) CurrentBalance(ctx context.Context, channelID snowflake.ID, currency ledgerdomain.Currency) (decimal.Decimal, error) {
	return s.currentBalance(ctx, s.db, channelID, currency)
}

func (s *Service) DynamicBalance(ctx context.Context, channelID snowflake.ID, currency ledgerdomain.Currency) (decimal.Decimal, error) {
	if channelID == 0 {
		return decimal.Zero, ledgerdomain.ErrInvalidChannel
	}
	if currency != ledgerdomain.CurrencyRMB && currency != ledgerdomain.CurrencyHKD {
		return decimal.Zero, ledgerdomain.ErrInvalidCurrency
	}

	base := decimal.Zero
	var row ledgerdomain.ChannelBalance
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND currency = ?", channelID, currency).
		Order("balance_date DESC, id DESC").
		First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}
	if err == nil {
		base = row.InitialAmount
	}

	type movement struct {
		Type      string          `gorm:"column:type"`
		RMBAmount decimal.Decimal `gorm:"column:rmb_amount"`
		HKDAmount decimal.Decimal `gorm:"column:hkd_amount"`
	}
	var movements []movement
	err = s.db.WithContext(ctx).Raw(
		`SELECT type, rmb_amount, hkd_amount
		 FROM transactions
		 WHERE channel_id = ?
		   AND settlement_status = 'unsettled'
		   AND type IN ('income', 'outcome')`,
		channelID,
	).Scan(&movements).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := base
	for _, m := range movements {
		amount := m.RMBAmount
		if currency == ledgerdomain.CurrencyHKD {
			amount = m.HKDAmount
		}
		total = total.Add(ledgerdomain.Delta(currency, ledgerdomain.Flow(m.Type), amount))
	}
	return total, nil
}

func (s *Service) TotalCurrentBalanceTx(ctx context.Context, tx *gorm.DB, currency ledgerdomain.Currency) (decimal.Decimal, error) {
	var channelIDs []snowflake.ID
	err := tx.WithContext(ctx).
		Model(&ledgerdomain.ChannelBalance{}).
		Distinct("channel_id").
		Where("currency = ?", currency).
		Pluck("channel_id", &channelIDs).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, id := range channelIDs {
		balance, err := s.currentBalance(ctx, tx, id, currency)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(balance)
	}
	return total, nil
}

func (s *Service) currentBalance(ctx context.Context, db *gorm.DB, channelID snowflake.ID, currency ledgerdomain.Currency) (decimal.Decimal, error) {
	if channelID == 0 {
		return decimal.Zero, ledgerdomain.ErrInvalidChannel
	}
	if currency != ledgerdomain.CurrencyRMB && currency != ledgerdomain.CurrencyHKD {
		return decimal.Zero, ledgerdomain.ErrInvalidCurrency
	}

	var row ledgerdomain.ChannelBalance
	err := db.WithContext(ctx).
		Where("channel_id = ? AND currency = ?", channelID, currency).
		Order("balance_date DESC, id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return row.CurrentBalance, nil
}

// lockOrCreateRow locks today's row, creating it with the prior day's closing
// balance carried forward when it does not exist yet. The historical row read
// during seeding is locked too, so a concurrent revert cannot slip between
// the read and the insert.
func (s *Service) lockOrCreateRow(
	ctx context.Context,
	tx *gorm.DB,
	channelID snowflake.ID,
	currency ledgerdomain.Currency,
	date time.Time,
) (*ledgerdomain.ChannelBalance, error) {
	var row ledgerdomain.ChannelBalance
	err := pkgdb.ForUpdate(tx.WithContext(ctx)).
		Where("channel_id = ? AND currency = ? AND balance_date = ?", channelID, currency, date).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	initial := decimal.Zero
	var prior ledgerdomain.ChannelBalance
	err = pkgdb.ForUpdate(tx.WithContext(ctx)).
		Where("channel_id = ? AND currency = ? AND balance_date < ?", channelID, currency, date).
		Order("balance_date DESC, id DESC").
		First(&prior).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		initial = prior.CurrentBalance
	}

	now := s.clock.Now()
	row = ledgerdomain.ChannelBalance{
		ID:             s.genID.Generate(),
		ChannelID:      channelID,
		Currency:       currency,
		BalanceDate:    date,
		InitialAmount:  initial,
		IncomeAmount:   decimal.Zero,
		OutcomeAmount:  decimal.Zero,
		CurrentBalance: initial,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func retryable(err error) error {
	if err == nil {
		return nil
	}
	if pkgdb.IsLockContention(err) {
		return fmt.Errorf("%w: %v", ledgerdomain.ErrRetryable, err)
	}
	return err
}
