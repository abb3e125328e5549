package service

import (
	"context"
	"errors"
	"testing"
	"time"

	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	channelservice "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/service"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/events"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
	ledgerservice "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/service"
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
	svc      transactiondomain.Service
	statsSvc statisticsdomain.Service
	db       *gorm.DB
	channel  *channeldomain.Channel
}

func setupTransactionTest(t *testing.T) testEnv {
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
		&channeldomain.Channel{},
		&ledgerdomain.ChannelBalance{},
		&transactiondomain.Transaction{},
		&transactiondomain.TransactionImage{},
		&statisticsdomain.CurrentStatistic{},
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

	channelSvc := channelservice.NewService(channelservice.Params{DB: db, Log: log, GenID: node, Clock: fixed})
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node, Clock: fixed})
	statsSvc := statisticsservice.NewService(statisticsservice.Params{DB: db, Log: log, GenID: node, Clock: fixed})

	svc := NewService(Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fixed,
		LedgerSvc:  ledgerSvc,
		StatsSvc:   statsSvc,
		ChannelSvc: channelSvc,
		Outbox:     events.NewOutbox(db, node),
	})

	channel, err := channelSvc.Create(context.Background(), channeldomain.CreateChannelRequest{Name: "counter"})
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	return testEnv{svc: svc, statsSvc: statsSvc, db: db, channel: channel}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func incomeRequest(channelID snowflake.ID) transactiondomain.CreateTransactionRequest {
	return transactiondomain.CreateTransactionRequest{
		Type:         transactiondomain.TypeIncome,
		ChannelID:    channelID,
		AccountID:    1,
		RMBAmount:    dec("1000"),
		HKDAmount:    dec("970"),
		ExchangeRate: dec("0.97"),
		Profit:       dec("30"),
	}
}

func channelBalance(t *testing.T, db *gorm.DB, channelID snowflake.ID, currency ledgerdomain.Currency) decimal.Decimal {
	t.Helper()
	var row ledgerdomain.ChannelBalance
	err := db.Where("channel_id = ? AND currency = ?", channelID, currency).
		Order("balance_date DESC, id DESC").
		First(&row).Error
	if err != nil {
		t.Fatalf("load %s balance: %v", currency, err)
	}
	return row.CurrentBalance
}

func TestCreatePostsLedgerStatsAndOutbox(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, incomeRequest(env.channel.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.Status != transactiondomain.StatusSuccess {
		t.Fatalf("status = %s, want success", record.Status)
	}
	if record.SettlementStatus != transactiondomain.SettlementStatusUnsettled {
		t.Fatalf("settlement status = %s, want unsettled", record.SettlementStatus)
	}
	if record.UUID == "" {
		t.Fatal("expected generated uuid")
	}
	if !record.TransactionDate.Equal(testDay) {
		t.Fatalf("transaction date = %s, want clock time", record.TransactionDate)
	}

	// Income collects RMB and pays out HKD.
	if got := channelBalance(t, env.db, env.channel.ID, ledgerdomain.CurrencyRMB); !got.Equal(dec("1000")) {
		t.Fatalf("rmb balance = %s, want 1000", got)
	}
	if got := channelBalance(t, env.db, env.channel.ID, ledgerdomain.CurrencyHKD); !got.Equal(dec("-970")) {
		t.Fatalf("hkd balance = %s, want -970", got)
	}

	dashboard, err := env.statsSvc.DashboardSnapshot(ctx)
	if err != nil {
		t.Fatalf("dashboard snapshot: %v", err)
	}
	if dashboard.TransactionCount != 1 || dashboard.IncomeCount != 1 {
		t.Fatalf("dashboard counts = %d/%d, want 1/1", dashboard.TransactionCount, dashboard.IncomeCount)
	}

	var event events.ExchangeEvent
	if err := env.db.First(&event, "event_type = ?", events.EventTransactionRecorded).Error; err != nil {
		t.Fatalf("load outbox event: %v", err)
	}
	if event.Published {
		t.Fatal("event should start unpublished")
	}
}

func TestCreateIsIdempotentByUUID(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	req := incomeRequest(env.channel.ID)
	req.UUID = "op-7f3a"

	first, err := env.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := env.svc.Create(ctx, req)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay returned a different row: %s vs %s", first.ID, second.ID)
	}

	var rows int64
	if err := env.db.Model(&transactiondomain.Transaction{}).Count(&rows).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if rows != 1 {
		t.Fatalf("transaction rows = %d, want 1", rows)
	}

	dashboard, err := env.statsSvc.DashboardSnapshot(ctx)
	if err != nil {
		t.Fatalf("dashboard snapshot: %v", err)
	}
	if dashboard.TransactionCount != 1 {
		t.Fatalf("dashboard count = %d, want 1", dashboard.TransactionCount)
	}

	if got := channelBalance(t, env.db, env.channel.ID, ledgerdomain.CurrencyRMB); !got.Equal(dec("1000")) {
		t.Fatalf("rmb balance after replay = %s, want 1000", got)
	}
}

func TestCreateRejectsInactiveChannel(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	// The channel is still cached as active from setup; the create gate
	// must see the stored flip anyway.
	if err := env.db.Model(&channeldomain.Channel{}).
		Where("id = ?", env.channel.ID).
		Update("status", channeldomain.ChannelStatusInactive).Error; err != nil {
		t.Fatalf("deactivate channel: %v", err)
	}

	_, err := env.svc.Create(ctx, incomeRequest(env.channel.ID))
	if !errors.Is(err, channeldomain.ErrChannelInactive) {
		t.Fatalf("create on inactive channel error = %v, want ErrChannelInactive", err)
	}

	var rows int64
	if err := env.db.Model(&transactiondomain.Transaction{}).Count(&rows).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if rows != 0 {
		t.Fatalf("transaction rows = %d, want 0", rows)
	}
}

func TestCreateValidation(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		mutate  func(*transactiondomain.CreateTransactionRequest)
		wantErr error
	}{
		{
			name:    "unknown type",
			mutate:  func(r *transactiondomain.CreateTransactionRequest) { r.Type = "refund" },
			wantErr: transactiondomain.ErrInvalidType,
		},
		{
			name:    "missing channel",
			mutate:  func(r *transactiondomain.CreateTransactionRequest) { r.ChannelID = 0 },
			wantErr: transactiondomain.ErrInvalidChannel,
		},
		{
			name:    "missing account",
			mutate:  func(r *transactiondomain.CreateTransactionRequest) { r.AccountID = 0 },
			wantErr: transactiondomain.ErrInvalidAccount,
		},
		{
			name:    "negative amount",
			mutate:  func(r *transactiondomain.CreateTransactionRequest) { r.RMBAmount = dec("-1") },
			wantErr: transactiondomain.ErrInvalidAmount,
		},
		{
			name: "income with both amounts zero",
			mutate: func(r *transactiondomain.CreateTransactionRequest) {
				r.RMBAmount = decimal.Zero
				r.HKDAmount = decimal.Zero
			},
			wantErr: transactiondomain.ErrInvalidAmount,
		},
		{
			name:    "income without rate",
			mutate:  func(r *transactiondomain.CreateTransactionRequest) { r.ExchangeRate = decimal.Zero },
			wantErr: transactiondomain.ErrInvalidRate,
		},
		{
			name: "instant buyout without instant rate",
			mutate: func(r *transactiondomain.CreateTransactionRequest) {
				r.Type = transactiondomain.TypeInstantBuyout
				r.InstantRate = decimal.Zero
			},
			wantErr: transactiondomain.ErrInvalidRate,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := incomeRequest(env.channel.ID)
			tc.mutate(&req)
			if _, err := env.svc.Create(ctx, req); !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestUpdateMutableFieldsOnly(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, incomeRequest(env.channel.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := transactiondomain.StatusPending
	notes := "awaiting receipt"
	updated, err := env.svc.Update(ctx, record.ID, transactiondomain.UpdateTransactionRequest{
		Status: &status,
		Notes:  &notes,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != transactiondomain.StatusPending || updated.Notes != "awaiting receipt" {
		t.Fatalf("update result = %s/%q", updated.Status, updated.Notes)
	}

	bad := transactiondomain.Status("reversed")
	if _, err := env.svc.Update(ctx, record.ID, transactiondomain.UpdateTransactionRequest{Status: &bad}); !errors.Is(err, transactiondomain.ErrInvalidStatus) {
		t.Fatalf("invalid status error = %v, want ErrInvalidStatus", err)
	}
}

func TestSettledRecordsAreImmutable(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, incomeRequest(env.channel.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.db.Model(&transactiondomain.Transaction{}).
		Where("id = ?", record.ID).
		Update("settlement_status", transactiondomain.SettlementStatusSettled).Error; err != nil {
		t.Fatalf("mark settled: %v", err)
	}

	notes := "late edit"
	if _, err := env.svc.Update(ctx, record.ID, transactiondomain.UpdateTransactionRequest{Notes: &notes}); !errors.Is(err, transactiondomain.ErrImmutableRecord) {
		t.Fatalf("update settled error = %v, want ErrImmutableRecord", err)
	}
	if err := env.svc.Delete(ctx, record.ID); !errors.Is(err, transactiondomain.ErrImmutableRecord) {
		t.Fatalf("delete settled error = %v, want ErrImmutableRecord", err)
	}
}

func TestDeleteUnwindsSideEffects(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	record, err := env.svc.Create(ctx, incomeRequest(env.channel.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	image := transactiondomain.TransactionImage{
		ID:            mustNode(t).Generate(),
		TransactionID: &record.ID,
		Path:          "receipts/7f3a.jpg",
		CreatedAt:     testDay,
	}
	if err := env.db.Create(&image).Error; err != nil {
		t.Fatalf("create image: %v", err)
	}

	if err := env.svc.Delete(ctx, record.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := env.svc.Get(ctx, record.ID); !errors.Is(err, transactiondomain.ErrTransactionNotFound) {
		t.Fatalf("get after delete error = %v, want ErrTransactionNotFound", err)
	}

	var images int64
	if err := env.db.Model(&transactiondomain.TransactionImage{}).Count(&images).Error; err != nil {
		t.Fatalf("count images: %v", err)
	}
	if images != 0 {
		t.Fatalf("images after delete = %d, want 0", images)
	}

	if got := channelBalance(t, env.db, env.channel.ID, ledgerdomain.CurrencyRMB); !got.IsZero() {
		t.Fatalf("rmb balance after delete = %s, want 0", got)
	}
	if got := channelBalance(t, env.db, env.channel.ID, ledgerdomain.CurrencyHKD); !got.IsZero() {
		t.Fatalf("hkd balance after delete = %s, want 0", got)
	}

	dashboard, err := env.statsSvc.DashboardSnapshot(ctx)
	if err != nil {
		t.Fatalf("dashboard snapshot: %v", err)
	}
	if dashboard.TransactionCount != 0 {
		t.Fatalf("dashboard count after delete = %d, want 0", dashboard.TransactionCount)
	}

	var event events.ExchangeEvent
	if err := env.db.First(&event, "event_type = ?", events.EventTransactionDeleted).Error; err != nil {
		t.Fatalf("load delete event: %v", err)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	env := setupTransactionTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		req := incomeRequest(env.channel.ID)
		req.TransactionDate = testDay.Add(time.Duration(i) * time.Hour)
		if _, err := env.svc.Create(ctx, req); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	page, err := env.svc.List(ctx, transactiondomain.ListTransactionsRequest{
		ChannelID:        env.channel.ID,
		SettlementStatus: transactiondomain.SettlementStatusUnsettled,
		Page:             1,
		PerPage:          2,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Transactions) != 2 {
		t.Fatalf("page = total %d len %d, want 3/2", page.Total, len(page.Transactions))
	}
	if page.Transactions[0].TransactionDate.Before(page.Transactions[1].TransactionDate) {
		t.Fatal("expected newest-first ordering")
	}

	from := testDay.Add(90 * time.Minute)
	filtered, err := env.svc.List(ctx, transactiondomain.ListTransactionsRequest{From: &from})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if filtered.Total != 1 {
		t.Fatalf("filtered total = %d, want 1", filtered.Total)
	}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}
