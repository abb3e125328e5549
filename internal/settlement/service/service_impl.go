package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/config"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/events"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
	settlementdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/domain"
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

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Cfg       config.Config
	LedgerSvc ledgerdomain.Service
	StatsSvc  statisticsdomain.Service
	AuditSvc  auditdomain.Service
	Outbox    *events.Outbox
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.Config
	ledgerSvc ledgerdomain.Service
	statsSvc  statisticsdomain.Service
	auditSvc  auditdomain.Service
	outbox    *events.Outbox
}

func NewService(p Params) settlementdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("settlement.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Cfg,
		ledgerSvc: p.LedgerSvc,
		statsSvc:  p.StatsSvc,
		auditSvc:  p.AuditSvc,
		outbox:    p.Outbox,
	}
}

// batchTotals aggregates the profit components and currency flows of one
// unsettled batch. Profit figures are fixed per transaction at entry time
// and only summed here.
type batchTotals struct {
	outgoingProfit decimal.Decimal
	instantProfit  decimal.Decimal

	rmbIncome  decimal.Decimal
	rmbOutcome decimal.Decimal
	hkdIncome  decimal.Decimal
	hkdOutcome decimal.Decimal
}

func (t batchTotals) profit() decimal.Decimal {
	return t.outgoingProfit.Add(t.instantProfit)
}

// netHKDFlow is the batch's effect on the desk's HKD till: outcomes bring
// HKD in, incomes pay HKD out.
func (t batchTotals) netHKDFlow() decimal.Decimal {
	return t.hkdOutcome.Sub(t.hkdIncome)
}

func sumBatch(batch []transactiondomain.Transaction) batchTotals {
	totals := batchTotals{
		outgoingProfit: decimal.Zero,
		instantProfit:  decimal.Zero,
		rmbIncome:      decimal.Zero,
		rmbOutcome:     decimal.Zero,
		hkdIncome:      decimal.Zero,
		hkdOutcome:     decimal.Zero,
	}
	for _, txn := range batch {
		switch txn.Type {
		case transactiondomain.TypeIncome:
			totals.rmbIncome = totals.rmbIncome.Add(txn.RMBAmount)
			totals.hkdIncome = totals.hkdIncome.Add(txn.HKDAmount)
		case transactiondomain.TypeOutcome:
			totals.rmbOutcome = totals.rmbOutcome.Add(txn.RMBAmount)
			totals.hkdOutcome = totals.hkdOutcome.Add(txn.HKDAmount)
			totals.outgoingProfit = totals.outgoingProfit.Add(txn.Profit)
		case transactiondomain.TypeInstantBuyout:
			totals.instantProfit = totals.instantProfit.Add(txn.InstantProfit)
		}
	}
	return totals
}

func (s *Service) Preview(ctx context.Context) (settlementdomain.Preview, error) {
	var batch []transactiondomain.Transaction
	err := s.db.WithContext(ctx).
		Where("settlement_status = ?", transactiondomain.SettlementStatusUnsettled).
		Find(&batch).Error
	if err != nil {
		return settlementdomain.Preview{}, err
	}

	capital, err := s.CurrentCapital(ctx)
	if err != nil {
		return settlementdomain.Preview{}, err
	}
	hkdBalance, err := s.CurrentHKDBalance(ctx)
	if err != nil {
		return settlementdomain.Preview{}, err
	}

	totals := sumBatch(batch)
	return settlementdomain.Preview{
		CanSettle:         len(batch) > 0,
		TransactionCount:  int64(len(batch)),
		OutgoingProfit:    totals.outgoingProfit,
		InstantProfit:     totals.instantProfit,
		Profit:            totals.profit(),
		RMBIncomeTotal:    totals.rmbIncome,
		RMBOutcomeTotal:   totals.rmbOutcome,
		HKDIncomeTotal:    totals.hkdIncome,
		HKDOutcomeTotal:   totals.hkdOutcome,
		CurrentCapital:    capital,
		CurrentHKDBalance: hkdBalance,
	}, nil
}

func (s *Service) Execute(ctx context.Context, req settlementdomain.ExecuteRequest) (*settlementdomain.Settlement, error) {
	if !req.Actor.Valid() {
		return nil, settlementdomain.ErrInvalidActor
	}
	expensesTotal, incomesTotal, err := validateExpenses(req.Expenses)
	if err != nil {
		return nil, err
	}
	settlementDate := req.SettlementDate
	if settlementDate.IsZero() {
		settlementDate = s.clock.Now()
	}

	var record *settlementdomain.Settlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch []transactiondomain.Transaction
		err := pkgdb.ForUpdate(tx.WithContext(ctx)).
			Where("settlement_status = ?", transactiondomain.SettlementStatusUnsettled).
			Order("id ASC").
			Find(&batch).Error
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return settlementdomain.ErrNothingToSettle
		}

		totals := sumBatch(batch)
		profit := totals.profit()

		previousCapital, err := s.currentCapital(ctx, tx)
		if err != nil {
			return err
		}
		previousHKD, err := s.currentHKDBalance(ctx, tx)
		if err != nil {
			return err
		}

		rmbBalanceTotal, err := s.ledgerSvc.TotalCurrentBalanceTx(ctx, tx, ledgerdomain.CurrencyRMB)
		if err != nil {
			return err
		}

		newCapital := previousCapital.Add(profit).Sub(expensesTotal).Add(incomesTotal)
		newHKD := previousHKD.Add(totals.netHKDFlow())
		settlementRate := decimal.Zero
		if newHKD.IsPositive() {
			settlementRate = rmbBalanceTotal.DivRound(newHKD, 3)
		}

		sequence, err := nextSequenceNumber(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		record = &settlementdomain.Settlement{
			ID:                 s.genID.Generate(),
			SequenceNumber:     sequence,
			PreviousCapital:    previousCapital,
			PreviousHKDBalance: previousHKD,
			OutgoingProfit:     totals.outgoingProfit,
			InstantProfit:      totals.instantProfit,
			Profit:             profit,
			OtherExpensesTotal: expensesTotal,
			OtherIncomesTotal:  incomesTotal,
			NewCapital:         newCapital,
			NewHKDBalance:      newHKD,
			SettlementRate:     settlementRate,
			RMBBalanceTotal:    rmbBalanceTotal,
			TransactionCount:   int64(len(batch)),
			SettlementDate:     settlementDate,
			Notes:              strings.TrimSpace(req.Notes),
			ActorKind:          string(req.Actor.Kind),
			ActorID:            req.Actor.ID,
			CreatedAt:          now,
		}
		if err := tx.WithContext(ctx).Create(record).Error; err != nil {
			return err
		}

		for _, line := range req.Expenses {
			expense := settlementdomain.SettlementExpense{
				ID:           s.genID.Generate(),
				SettlementID: record.ID,
				Name:         strings.TrimSpace(line.Name),
				Amount:       line.Amount,
				Kind:         line.Kind,
				CreatedAt:    now,
			}
			if err := tx.WithContext(ctx).Create(&expense).Error; err != nil {
				return err
			}
		}

		settlementID := record.ID
		capitalAdj := settlementdomain.CapitalAdjustment{
			ID:               s.genID.Generate(),
			BeforeAmount:     previousCapital,
			AfterAmount:      newCapital,
			AdjustmentAmount: newCapital.Sub(previousCapital),
			AdjustmentType:   settlementdomain.AdjustmentTypeSettlement,
			SettlementID:     &settlementID,
			ActorKind:        string(req.Actor.Kind),
			ActorID:          req.Actor.ID,
			CreatedAt:        now,
		}
		if err := tx.WithContext(ctx).Create(&capitalAdj).Error; err != nil {
			return err
		}

		hkdAdj := settlementdomain.HKDBalanceAdjustment{
			ID:               s.genID.Generate(),
			BeforeAmount:     previousHKD,
			AfterAmount:      newHKD,
			AdjustmentAmount: newHKD.Sub(previousHKD),
			AdjustmentType:   settlementdomain.AdjustmentTypeSettlement,
			SettlementID:     &settlementID,
			ActorKind:        string(req.Actor.Kind),
			ActorID:          req.Actor.ID,
			CreatedAt:        now,
		}
		if err := tx.WithContext(ctx).Create(&hkdAdj).Error; err != nil {
			return err
		}

		ids := make([]snowflake.ID, 0, len(batch))
		for _, txn := range batch {
			ids = append(ids, txn.ID)
		}
		err = tx.WithContext(ctx).Model(&transactiondomain.Transaction{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"settlement_status": transactiondomain.SettlementStatusSettled,
				"settlement_id":     record.ID,
				"settlement_date":   settlementDate,
				"updated_at":        now,
			}).Error
		if err != nil {
			return err
		}

		// Settled transactions no longer contribute to the live counters.
		if err := s.statsSvc.ClearAllTx(ctx, tx); err != nil {
			return err
		}

		targetID := record.ID.String()
		err = s.auditSvc.LogTx(ctx, tx, req.Actor, "settlement.closed", "settlement", &targetID, map[string]any{
			"sequence_number":   record.SequenceNumber,
			"transaction_count": record.TransactionCount,
			"profit":            record.Profit.String(),
			"new_capital":       record.NewCapital.String(),
			"new_hkd_balance":   record.NewHKDBalance.String(),
		})
		if err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.EventSettlementClosed,
			Payload: events.SettlementPayload{
				SettlementID:   record.ID.String(),
				SequenceNumber: record.SequenceNumber,
				Transactions:   len(batch),
			}.ToMap(),
			DedupeKey: "settlement.closed:" + record.ID.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("settlement executed",
		zap.Int64("sequence_number", record.SequenceNumber),
		zap.Int64("transaction_count", record.TransactionCount),
		zap.String("profit", record.Profit.String()),
	)
	return record, nil
}

func (s *Service) List(ctx context.Context, page, perPage int) (settlementdomain.ListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&settlementdomain.Settlement{}).Count(&total).Error; err != nil {
		return settlementdomain.ListResponse{}, err
	}

	var records []settlementdomain.Settlement
	err := s.db.WithContext(ctx).
		Order("sequence_number DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&records).Error
	if err != nil {
		return settlementdomain.ListResponse{}, err
	}

	return settlementdomain.ListResponse{
		Settlements: records,
		Total:       total,
		Page:        page,
		PerPage:     perPage,
	}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*settlementdomain.SettlementDetail, error) {
	var record settlementdomain.Settlement
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, settlementdomain.ErrSettlementNotFound
		}
		return nil, err
	}

	var expenses []settlementdomain.SettlementExpense
	err = s.db.WithContext(ctx).
		Where("settlement_id = ?", id).
		Order("id ASC").
		Find(&expenses).Error
	if err != nil {
		return nil, err
	}

	return &settlementdomain.SettlementDetail{
		Settlement: record,
		Expenses:   expenses,
	}, nil
}

func (s *Service) CurrentCapital(ctx context.Context) (decimal.Decimal, error) {
	return s.currentCapital(ctx, s.db)
}

func (s *Service) CurrentHKDBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.currentHKDBalance(ctx, s.db)
}

func (s *Service) AdjustCapital(ctx context.Context, amount decimal.Decimal, who actor.Actor, notes string) (*settlementdomain.CapitalAdjustment, error) {
	if !who.Valid() {
		return nil, settlementdomain.ErrInvalidActor
	}

	var record *settlementdomain.CapitalAdjustment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.currentCapital(ctx, tx)
		if err != nil {
			return err
		}
		record = &settlementdomain.CapitalAdjustment{
			ID:               s.genID.Generate(),
			BeforeAmount:     before,
			AfterAmount:      before.Add(amount),
			AdjustmentAmount: amount,
			AdjustmentType:   settlementdomain.AdjustmentTypeManual,
			ActorKind:        string(who.Kind),
			ActorID:          who.ID,
			Notes:            strings.TrimSpace(notes),
			CreatedAt:        s.clock.Now(),
		}
		if err := tx.WithContext(ctx).Create(record).Error; err != nil {
			return err
		}

		targetID := record.ID.String()
		return s.auditSvc.LogTx(ctx, tx, who, "capital.adjusted", "capital_adjustment", &targetID, map[string]any{
			"before": record.BeforeAmount.String(),
			"after":  record.AfterAmount.String(),
			"amount": amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) AdjustHKDBalance(ctx context.Context, amount decimal.Decimal, who actor.Actor, notes string) (*settlementdomain.HKDBalanceAdjustment, error) {
	if !who.Valid() {
		return nil, settlementdomain.ErrInvalidActor
	}

	var record *settlementdomain.HKDBalanceAdjustment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		before, err := s.currentHKDBalance(ctx, tx)
		if err != nil {
			return err
		}
		record = &settlementdomain.HKDBalanceAdjustment{
			ID:               s.genID.Generate(),
			BeforeAmount:     before,
			AfterAmount:      before.Add(amount),
			AdjustmentAmount: amount,
			AdjustmentType:   settlementdomain.AdjustmentTypeManual,
			ActorKind:        string(who.Kind),
			ActorID:          who.ID,
			Notes:            strings.TrimSpace(notes),
			CreatedAt:        s.clock.Now(),
		}
		if err := tx.WithContext(ctx).Create(record).Error; err != nil {
			return err
		}

		targetID := record.ID.String()
		return s.auditSvc.LogTx(ctx, tx, who, "hkd_balance.adjusted", "hkd_balance_adjustment", &targetID, map[string]any{
			"before": record.BeforeAmount.String(),
			"after":  record.AfterAmount.String(),
			"amount": amount.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// currentCapital reads the newest adjustment row's AfterAmount; the
// configured bootstrap capital applies while the trail is empty.
func (s *Service) currentCapital(ctx context.Context, db *gorm.DB) (decimal.Decimal, error) {
	var row settlementdomain.CapitalAdjustment
	err := db.WithContext(ctx).Order("id DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.cfg.InitialCapital, nil
		}
		return decimal.Zero, err
	}
	return row.AfterAmount, nil
}

func (s *Service) currentHKDBalance(ctx context.Context, db *gorm.DB) (decimal.Decimal, error) {
	var row settlementdomain.HKDBalanceAdjustment
	err := db.WithContext(ctx).Order("id DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.cfg.InitialHKDBalance, nil
		}
		return decimal.Zero, err
	}
	return row.AfterAmount, nil
}

func nextSequenceNumber(ctx context.Context, tx *gorm.DB) (int64, error) {
	var max int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COALESCE(MAX(sequence_number), 0) FROM settlements`,
	).Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func validateExpenses(lines []settlementdomain.ExpenseLine) (expenses, incomes decimal.Decimal, err error) {
	expenses = decimal.Zero
	incomes = decimal.Zero
	for _, line := range lines {
		if strings.TrimSpace(line.Name) == "" {
			return decimal.Zero, decimal.Zero, settlementdomain.ErrInvalidExpense
		}
		if line.Amount.IsNegative() {
			return decimal.Zero, decimal.Zero, settlementdomain.ErrInvalidExpense
		}
		switch line.Kind {
		case settlementdomain.ExpenseKindExpense:
			expenses = expenses.Add(line.Amount)
		case settlementdomain.ExpenseKindIncome:
			incomes = incomes.Add(line.Amount)
		default:
			return decimal.Zero, decimal.Zero, settlementdomain.ErrInvalidExpense
		}
	}
	return expenses, incomes, nil
}
