package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	auditservice "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/service"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/config"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/events"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
	ledgerservice "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/service"
	settlementdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/domain"
	statisticsdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/domain"
	statisticsservice "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/service"
	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDay = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	svc       settlementdomain.Service
	ledgerSvc ledgerdomain.Service
	statsSvc  statisticsdomain.Service
	db        *gorm.DB
	node      *snowflake.Node
}

func setupSettlementTest(t *testing.T) testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&ledgerdomain.ChannelBalance{},
		&transactiondomain.Transaction{},
		&statisticsdomain.CurrentStatistic{},
		&settlementdomain.Settlement{},
		&settlementdomain.SettlementExpense{},
		&settlementdomain.CapitalAdjustment{},
		&settlementdomain.HKDBalanceAdjustment{},
		&auditdomain.AuditLog{},
		&events.ExchangeEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	log := zap.NewNop()
	fixed := clock.Fixed{At: testDay}
	cfg := config.Config{
		InitialCapital:    dec("100000"),
		InitialHKDBalance: dec("20000"),
	}

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node, Clock: fixed})
	statsSvc := statisticsservice.NewService(statisticsservice.Params{DB: db, Log: log, GenID: node, Clock: fixed})
	auditSvc := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Clock: fixed})

	svc := NewService(Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     fixed,
		Cfg:       cfg,
		LedgerSvc: ledgerSvc,
		StatsSvc:  statsSvc,
		AuditSvc:  auditSvc,
		Outbox:    events.NewOutbox(db, node),
	})

	return testEnv{svc: svc, ledgerSvc: ledgerSvc, statsSvc: statsSvc, db: db, node: node}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedBatch stores an unsettled batch and posts its ledger and statistics
// side effects the way the transaction service would: three incomes of
// 1000 RMB and one outcome of 500 RMB carrying 5000 HKD and 700 profit.
func seedBatch(t *testing.T, env testEnv, tag string) {
	t.Helper()
	ctx := context.Background()
	channelID := snowflake.ID(42)

	batch := []transactiondomain.Transaction{}
	for i := 0; i < 3; i++ {
		batch = append(batch, transactiondomain.Transaction{
			Type:      transactiondomain.TypeIncome,
			RMBAmount: dec("1000"),
		})
	}
	batch = append(batch, transactiondomain.Transaction{
		Type:      transactiondomain.TypeOutcome,
		RMBAmount: dec("500"),
		HKDAmount: dec("5000"),
		Profit:    dec("700"),
	})

	for i := range batch {
		txn := &batch[i]
		txn.ID = env.node.Generate()
		txn.UUID = fmt.Sprintf("%s-%d", tag, i)
		txn.Status = transactiondomain.StatusSuccess
		txn.ChannelID = channelID
		txn.AccountID = 1
		txn.SettlementStatus = transactiondomain.SettlementStatusUnsettled
		txn.TransactionDate = testDay
		txn.CreatedAt = testDay
		txn.UpdatedAt = testDay
		if err := env.db.Create(txn).Error; err != nil {
			t.Fatalf("seed transaction: %v", err)
		}

		flow := ledgerdomain.Flow(txn.Type)
		if err := env.ledgerSvc.Apply(ctx, channelID, ledgerdomain.CurrencyRMB, testDay, flow, txn.RMBAmount); err != nil {
			t.Fatalf("apply rmb leg: %v", err)
		}
		if err := env.ledgerSvc.Apply(ctx, channelID, ledgerdomain.CurrencyHKD, testDay, flow, txn.HKDAmount); err != nil {
			t.Fatalf("apply hkd leg: %v", err)
		}
		if err := env.statsSvc.AddTransactionTx(ctx, env.db, txn); err != nil {
			t.Fatalf("add stats: %v", err)
		}
	}
}

func TestExecuteClosesBatch(t *testing.T) {
	env := setupSettlementTest(t)
	ctx := context.Background()
	seedBatch(t, env, "batch-a")

	record, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{
		Expenses: []settlementdomain.ExpenseLine{
			{Name: "rent", Amount: dec("100"), Kind: settlementdomain.ExpenseKindExpense},
		},
		Actor: actor.Admin(9),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if record.SequenceNumber != 1 {
		t.Fatalf("sequence = %d, want 1", record.SequenceNumber)
	}
	if record.TransactionCount != 4 {
		t.Fatalf("transaction count = %d, want 4", record.TransactionCount)
	}
	if !record.PreviousCapital.Equal(dec("100000")) {
		t.Fatalf("previous capital = %s, want 100000", record.PreviousCapital)
	}
	if !record.Profit.Equal(dec("700")) {
		t.Fatalf("profit = %s, want 700", record.Profit)
	}
	// 100000 + 700 profit - 100 expenses.
	if !record.NewCapital.Equal(dec("100600")) {
		t.Fatalf("new capital = %s, want 100600", record.NewCapital)
	}
	// 20000 + (5000 outcome HKD - 0 income HKD).
	if !record.NewHKDBalance.Equal(dec("25000")) {
		t.Fatalf("new hkd balance = %s, want 25000", record.NewHKDBalance)
	}
	// 3000 income RMB - 500 outcome RMB across all channels.
	if !record.RMBBalanceTotal.Equal(dec("2500")) {
		t.Fatalf("rmb balance total = %s, want 2500", record.RMBBalanceTotal)
	}
	if !record.SettlementRate.Equal(dec("0.1")) {
		t.Fatalf("settlement rate = %s, want 0.1", record.SettlementRate)
	}

	var unsettled int64
	err = env.db.Model(&transactiondomain.Transaction{}).
		Where("settlement_status = ?", transactiondomain.SettlementStatusUnsettled).
		Count(&unsettled).Error
	if err != nil {
		t.Fatalf("count unsettled: %v", err)
	}
	if unsettled != 0 {
		t.Fatalf("unsettled after execute = %d, want 0", unsettled)
	}

	var stamped transactiondomain.Transaction
	if err := env.db.First(&stamped, "settlement_id = ?", record.ID).Error; err != nil {
		t.Fatalf("load stamped transaction: %v", err)
	}
	if stamped.SettlementDate == nil {
		t.Fatal("settlement date not stamped on transaction")
	}

	var statRows int64
	if err := env.db.Model(&statisticsdomain.CurrentStatistic{}).Count(&statRows).Error; err != nil {
		t.Fatalf("count statistics: %v", err)
	}
	if statRows != 0 {
		t.Fatalf("statistics rows after execute = %d, want 0", statRows)
	}

	var capitalAdj settlementdomain.CapitalAdjustment
	if err := env.db.First(&capitalAdj, "settlement_id = ?", record.ID).Error; err != nil {
		t.Fatalf("load capital adjustment: %v", err)
	}
	if capitalAdj.AdjustmentType != settlementdomain.AdjustmentTypeSettlement || !capitalAdj.AfterAmount.Equal(dec("100600")) {
		t.Fatalf("capital adjustment = %s/%s", capitalAdj.AdjustmentType, capitalAdj.AfterAmount)
	}

	var audit auditdomain.AuditLog
	if err := env.db.First(&audit, "action = ?", "settlement.closed").Error; err != nil {
		t.Fatalf("load audit row: %v", err)
	}
	if audit.ActorKind != "admin" || audit.ActorID != 9 {
		t.Fatalf("audit actor = %s:%s", audit.ActorKind, audit.ActorID)
	}

	var event events.ExchangeEvent
	if err := env.db.First(&event, "event_type = ?", events.EventSettlementClosed).Error; err != nil {
		t.Fatalf("load outbox event: %v", err)
	}
}

func TestExecuteEmptyBatchFails(t *testing.T) {
	env := setupSettlementTest(t)
	ctx := context.Background()

	_, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{Actor: actor.Admin(9)})
	if !errors.Is(err, settlementdomain.ErrNothingToSettle) {
		t.Fatalf("empty batch error = %v, want ErrNothingToSettle", err)
	}
}

func TestSequenceNumberIncrements(t *testing.T) {
	env := setupSettlementTest(t)
	ctx := context.Background()

	seedBatch(t, env, "batch-a")
	first, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{Actor: actor.Admin(9)})
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}

	if _, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{Actor: actor.Admin(9)}); !errors.Is(err, settlementdomain.ErrNothingToSettle) {
		t.Fatalf("re-execute error = %v, want ErrNothingToSettle", err)
	}

	seedBatch(t, env, "batch-b")
	second, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{Actor: actor.Admin(9)})
	if err != nil {
		t.Fatalf("second execute: %v", err)
	}
	if first.SequenceNumber != 1 || second.SequenceNumber != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first.SequenceNumber, second.SequenceNumber)
	}
	// The second closing starts from the first closing's result.
	if !second.PreviousCapital.Equal(first.NewCapital) {
		t.Fatalf("second previous capital = %s, want %s", second.PreviousCapital, first.NewCapital)
	}
	if !second.PreviousHKDBalance.Equal(first.NewHKDBalance) {
		t.Fatalf("second previous hkd = %s, want %s", second.PreviousHKDBalance, first.NewHKDBalance)
	}
}

func TestExecuteValidation(t *testing.T) {
	env := setupSettlementTest(t)
	ctx := context.Background()
	seedBatch(t, env, "batch-a")

	if _, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{}); !errors.Is(err, settlementdomain.ErrInvalidActor) {
		t.Fatalf("missing actor error = %v, want ErrInvalidActor", err)
	}

	cases := []settlementdomain.ExpenseLine{
		{Name: "", Amount: dec("10"), Kind: settlementdomain.ExpenseKindExpense},
		{Name: "rent", Amount: dec("-10"), Kind: settlementdomain.ExpenseKindExpense},
		{Name: "rent", Amount: dec("10"), Kind: "transfer"},
	}
	for _, line := range cases {
		_, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{
			Expenses: []settlementdomain.ExpenseLine{line},
			Actor:    actor.Admin(9),
		})
		if !errors.Is(err, settlementdomain.ErrInvalidExpense) {
			t.Fatalf("expense line %+v error = %v, want ErrInvalidExpense", line, err)
		}
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	env := setupSettlementTest(t)
	ctx := context.Background()

	empty, err := env.svc.Preview(ctx)
	if err != nil {
		t.Fatalf("empty preview: %v", err)
	}
	if empty.CanSettle {
		t.Fatal("empty preview should not be settleable")
	}
	if !empty.CurrentCapital.Equal(dec("100000")) || !empty.CurrentHKDBalance.Equal(dec("20000")) {
		t.Fatalf("bootstrap balances = %s/%s", empty.CurrentCapital, empty.CurrentHKDBalance)
	}

	seedBatch(t, env, "batch-a")
	preview, err := env.svc.Preview(ctx)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !preview.CanSettle || preview.TransactionCount != 4 {
		t.Fatalf("preview = settleable %v count %d, want true/4", preview.CanSettle, preview.TransactionCount)
	}
	if !preview.Profit.Equal(dec("700")) {
		t.Fatalf("preview profit = %s, want 700", preview.Profit)
	}
	if !preview.RMBIncomeTotal.Equal(dec("3000")) || !preview.RMBOutcomeTotal.Equal(dec("500")) {
		t.Fatalf("preview rmb totals = %s/%s", preview.RMBIncomeTotal, preview.RMBOutcomeTotal)
	}

	var settlements int64
	if err := env.db.Model(&settlementdomain.Settlement{}).Count(&settlements).Error; err != nil {
		t.Fatalf("count settlements: %v", err)
	}
	if settlements != 0 {
		t.Fatalf("settlements after preview = %d, want 0", settlements)
	}
	var unsettled int64
	err = env.db.Model(&transactiondomain.Transaction{}).
		Where("settlement_status = ?", transactiondomain.SettlementStatusUnsettled).
		Count(&unsettled).Error
	if err != nil {
		t.Fatalf("count unsettled: %v", err)
	}
	if unsettled != 4 {
		t.Fatalf("unsettled after preview = %d, want 4", unsettled)
	}
}

func TestManualAdjustmentsAppendTrail(t *testing.T) {
	env := setupSettlementTest(t)
	ctx := context.Background()
	who := actor.Account(5)

	capital, err := env.svc.CurrentCapital(ctx)
	if err != nil {
		t.Fatalf("current capital: %v", err)
	}
	if !capital.Equal(dec("100000")) {
		t.Fatalf("bootstrap capital = %s, want 100000", capital)
	}

	first, err := env.svc.AdjustCapital(ctx, dec("500"), who, "cash injection")
	if err != nil {
		t.Fatalf("adjust capital: %v", err)
	}
	if !first.BeforeAmount.Equal(dec("100000")) || !first.AfterAmount.Equal(dec("100500")) {
		t.Fatalf("first adjustment = %s -> %s", first.BeforeAmount, first.AfterAmount)
	}

	second, err := env.svc.AdjustCapital(ctx, dec("-200"), who, "")
	if err != nil {
		t.Fatalf("second adjust: %v", err)
	}
	if !second.BeforeAmount.Equal(dec("100500")) || !second.AfterAmount.Equal(dec("100300")) {
		t.Fatalf("second adjustment = %s -> %s", second.BeforeAmount, second.AfterAmount)
	}

	capital, err = env.svc.CurrentCapital(ctx)
	if err != nil {
		t.Fatalf("current capital after adjustments: %v", err)
	}
	if !capital.Equal(dec("100300")) {
		t.Fatalf("capital = %s, want 100300", capital)
	}

	hkd, err := env.svc.AdjustHKDBalance(ctx, dec("1000"), who, "till top-up")
	if err != nil {
		t.Fatalf("adjust hkd: %v", err)
	}
	if !hkd.AfterAmount.Equal(dec("21000")) {
		t.Fatalf("hkd after = %s, want 21000", hkd.AfterAmount)
	}

	if _, err := env.svc.AdjustCapital(ctx, dec("1"), actor.Actor{}, ""); !errors.Is(err, settlementdomain.ErrInvalidActor) {
		t.Fatalf("invalid actor error = %v, want ErrInvalidActor", err)
	}

	var auditRows int64
	if err := env.db.Model(&auditdomain.AuditLog{}).Count(&auditRows).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	if auditRows != 3 {
		t.Fatalf("audit rows = %d, want 3", auditRows)
	}
}

func TestGetReturnsExpenseLines(t *testing.T) {
	env := setupSettlementTest(t)
	ctx := context.Background()
	seedBatch(t, env, "batch-a")

	record, err := env.svc.Execute(ctx, settlementdomain.ExecuteRequest{
		Expenses: []settlementdomain.ExpenseLine{
			{Name: "rent", Amount: dec("100"), Kind: settlementdomain.ExpenseKindExpense},
			{Name: "referral bonus", Amount: dec("40"), Kind: settlementdomain.ExpenseKindIncome},
		},
		Actor: actor.Admin(9),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	// 100000 + 700 - 100 + 40.
	if !record.NewCapital.Equal(dec("100640")) {
		t.Fatalf("new capital = %s, want 100640", record.NewCapital)
	}

	detail, err := env.svc.Get(ctx, record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Expenses) != 2 {
		t.Fatalf("expense lines = %d, want 2", len(detail.Expenses))
	}

	if _, err := env.svc.Get(ctx, env.node.Generate()); !errors.Is(err, settlementdomain.ErrSettlementNotFound) {
		t.Fatalf("missing settlement error = %v, want ErrSettlementNotFound", err)
	}

	page, err := env.svc.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || len(page.Settlements) != 1 {
		t.Fatalf("list = total %d len %d, want 1/1", page.Total, len(page.Settlements))
	}
}
