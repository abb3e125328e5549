package service

import (
	"context"
	"errors"
	"strings"

	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/events"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
	statisticsdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/domain"
	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	pkgdb "github.com/ShaneWong116/CurrencyExchange-sub000/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	LedgerSvc  ledgerdomain.Service
	StatsSvc   statisticsdomain.Service
	ChannelSvc channeldomain.Service
	Outbox     *events.Outbox
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	ledgerSvc  ledgerdomain.Service
	statsSvc   statisticsdomain.Service
	channelSvc channeldomain.Service
	outbox     *events.Outbox
}

func NewService(p Params) transactiondomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("transaction.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		ledgerSvc:  p.LedgerSvc,
		statsSvc:   p.StatsSvc,
		channelSvc: p.ChannelSvc,
		outbox:     p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, req transactiondomain.CreateTransactionRequest) (*transactiondomain.Transaction, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	// The status gate reads past the channel cache so a just-deactivated
	// channel cannot accept new transactions for the rest of the TTL.
	channel, err := s.channelSvc.GetFresh(ctx, req.ChannelID)
	if err != nil {
		return nil, err
	}
	if channel.Status != channeldomain.ChannelStatusActive {
		return nil, channeldomain.ErrChannelInactive
	}

	key := strings.TrimSpace(req.UUID)
	if key == "" {
		key = uuid.NewString()
	}

	transactionDate := req.TransactionDate
	if transactionDate.IsZero() {
		transactionDate = s.clock.Now()
	}

	var record *transactiondomain.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing transactiondomain.Transaction
		err := tx.WithContext(ctx).Where("uuid = ?", key).First(&existing).Error
		if err == nil {
			record = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := s.clock.Now()
		record = &transactiondomain.Transaction{
			ID:               s.genID.Generate(),
			UUID:             key,
			Type:             req.Type,
			Status:           transactiondomain.StatusSuccess,
			ChannelID:        req.ChannelID,
			AccountID:        req.AccountID,
			RMBAmount:        req.RMBAmount,
			HKDAmount:        req.HKDAmount,
			ExchangeRate:     req.ExchangeRate,
			Profit:           req.Profit,
			InstantRate:      req.InstantRate,
			InstantProfit:    req.InstantProfit,
			SettlementStatus: transactiondomain.SettlementStatusUnsettled,
			TransactionDate:  transactionDate,
			Notes:            strings.TrimSpace(req.Notes),
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.WithContext(ctx).Create(record).Error; err != nil {
			return err
		}

		if err := s.applyLedger(ctx, tx, record, false); err != nil {
			return err
		}
		if err := s.statsSvc.AddTransactionTx(ctx, tx, record); err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventTransactionRecorded,
			Payload: events.TransactionPayload{
				TransactionID: record.ID.String(),
				ChannelID:     record.ChannelID.String(),
				Type:          string(record.Type),
			}.ToMap(),
			DedupeKey: "transaction.recorded:" + record.UUID,
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req transactiondomain.UpdateTransactionRequest) (*transactiondomain.Transaction, error) {
	if req.Status != nil {
		switch *req.Status {
		case transactiondomain.StatusPending, transactiondomain.StatusSuccess, transactiondomain.StatusFailed:
		default:
			return nil, transactiondomain.ErrInvalidStatus
		}
	}

	var record transactiondomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := pkgdb.ForUpdate(tx.WithContext(ctx)).
			First(&record, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return transactiondomain.ErrTransactionNotFound
			}
			return err
		}
		if record.SettlementStatus == transactiondomain.SettlementStatusSettled {
			return transactiondomain.ErrImmutableRecord
		}

		updates := map[string]any{"updated_at": s.clock.Now()}
		if req.Status != nil {
			record.Status = *req.Status
			updates["status"] = record.Status
		}
		if req.Notes != nil {
			record.Notes = strings.TrimSpace(*req.Notes)
			updates["notes"] = record.Notes
		}

		return tx.WithContext(ctx).Model(&transactiondomain.Transaction{}).
			Where("id = ?", id).
			Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes an unsettled transaction, unwinding its ledger and
// statistics side effects against the transaction's original date. Settled
// transactions are refused outright.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record transactiondomain.Transaction
		err := pkgdb.ForUpdate(tx.WithContext(ctx)).
			First(&record, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return transactiondomain.ErrTransactionNotFound
			}
			return err
		}
		if record.SettlementStatus == transactiondomain.SettlementStatusSettled {
			return transactiondomain.ErrImmutableRecord
		}

		if err := s.applyLedger(ctx, tx, &record, true); err != nil {
			return err
		}
		if err := s.statsSvc.RemoveTransactionTx(ctx, tx, &record); err != nil {
			return err
		}

		if err := tx.WithContext(ctx).
			Where("transaction_id = ?", record.ID).
			Delete(&transactiondomain.TransactionImage{}).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Delete(&transactiondomain.Transaction{}, "id = ?", record.ID).Error; err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventTransactionDeleted,
			Payload: events.TransactionPayload{
				TransactionID: record.ID.String(),
				ChannelID:     record.ChannelID.String(),
				Type:          string(record.Type),
			}.ToMap(),
			DedupeKey: "transaction.deleted:" + record.UUID,
		})
	})
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*transactiondomain.Transaction, error) {
	var record transactiondomain.Transaction
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transactiondomain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) List(ctx context.Context, req transactiondomain.ListTransactionsRequest) (transactiondomain.ListTransactionsResponse, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 50
	}

	query := s.db.WithContext(ctx).Model(&transactiondomain.Transaction{})
	if req.ChannelID != 0 {
		query = query.Where("channel_id = ?", req.ChannelID)
	}
	if req.SettlementStatus != "" {
		query = query.Where("settlement_status = ?", req.SettlementStatus)
	}
	if req.From != nil {
		query = query.Where("transaction_date >= ?", req.From.UTC())
	}
	if req.To != nil {
		query = query.Where("transaction_date <= ?", req.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return transactiondomain.ListTransactionsResponse{}, err
	}

	var records []transactiondomain.Transaction
	err := query.
		Order("transaction_date DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&records).Error
	if err != nil {
		return transactiondomain.ListTransactionsResponse{}, err
	}

	return transactiondomain.ListTransactionsResponse{
		Transactions: records,
		Total:        total,
		Page:         page,
		PerPage:      perPage,
	}, nil
}

// applyLedger posts or reverts both currency legs for cash-moving types.
// Exchange and instant buyout contribute profit only, never channel cash.
func (s *Service) applyLedger(ctx context.Context, tx *gorm.DB, record *transactiondomain.Transaction, revert bool) error {
	if !record.Type.MovesCash() {
		return nil
	}

	flow := ledgerdomain.Flow(record.Type)
	legs := []struct {
		currency ledgerdomain.Currency
		amount   decimal.Decimal
	}{
		{ledgerdomain.CurrencyRMB, record.RMBAmount},
		{ledgerdomain.CurrencyHKD, record.HKDAmount},
	}
	for _, leg := range legs {
		var err error
		if revert {
			err = s.ledgerSvc.RevertTx(ctx, tx, record.ChannelID, leg.currency, record.TransactionDate, flow, leg.amount)
		} else {
			err = s.ledgerSvc.ApplyTx(ctx, tx, record.ChannelID, leg.currency, record.TransactionDate, flow, leg.amount)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func validateCreate(req transactiondomain.CreateTransactionRequest) error {
	if !req.Type.Valid() {
		return transactiondomain.ErrInvalidType
	}
	if req.ChannelID == 0 {
		return transactiondomain.ErrInvalidChannel
	}
	if req.AccountID == 0 {
		return transactiondomain.ErrInvalidAccount
	}
	if req.RMBAmount.IsNegative() || req.HKDAmount.IsNegative() {
		return transactiondomain.ErrInvalidAmount
	}

	switch req.Type {
	case transactiondomain.TypeIncome, transactiondomain.TypeOutcome:
		if req.RMBAmount.IsZero() && req.HKDAmount.IsZero() {
			return transactiondomain.ErrInvalidAmount
		}
		if !req.ExchangeRate.IsPositive() {
			return transactiondomain.ErrInvalidRate
		}
	case transactiondomain.TypeExchange:
		if !req.ExchangeRate.IsPositive() {
			return transactiondomain.ErrInvalidRate
		}
	case transactiondomain.TypeInstantBuyout:
		if !req.InstantRate.IsPositive() {
			return transactiondomain.ErrInvalidRate
		}
		if req.InstantProfit.IsNegative() {
			return transactiondomain.ErrInvalidAmount
		}
	}
	return nil
}
