package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDay = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func setupAuditTest(t *testing.T) *Service {
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

	if err := db.AutoMigrate(&auditdomain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	return &Service{
		db:    db,
		log:   zap.NewNop(),
		genID: node,
		clock: clock.Fixed{At: testDay},
	}
}

func TestLogStoresEntry(t *testing.T) {
	svc := setupAuditTest(t)
	ctx := context.Background()

	targetID := "12345"
	err := svc.Log(ctx, actor.Admin(9), "settlement.closed", "settlement", &targetID, map[string]any{
		"sequence_number": int64(1),
		"":                "dropped",
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}

	entries, err := svc.List(ctx, auditdomain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Action != "settlement.closed" || entry.ActorKind != "admin" || entry.ActorID != 9 {
		t.Fatalf("entry = %s %s:%s", entry.Action, entry.ActorKind, entry.ActorID)
	}
	if entry.TargetID == nil || *entry.TargetID != "12345" {
		t.Fatalf("target id = %v, want 12345", entry.TargetID)
	}
	if _, ok := entry.Metadata[""]; ok {
		t.Fatal("blank metadata keys should be dropped")
	}
}

func TestLogValidation(t *testing.T) {
	svc := setupAuditTest(t)
	ctx := context.Background()

	if err := svc.Log(ctx, actor.Actor{}, "cleanup.completed", "cleanup", nil, nil); !errors.Is(err, auditdomain.ErrInvalidActor) {
		t.Fatalf("invalid actor error = %v, want ErrInvalidActor", err)
	}
	if err := svc.Log(ctx, actor.Admin(9), "   ", "cleanup", nil, nil); !errors.Is(err, auditdomain.ErrInvalidAction) {
		t.Fatalf("blank action error = %v, want ErrInvalidAction", err)
	}
}

func TestListFilters(t *testing.T) {
	svc := setupAuditTest(t)
	ctx := context.Background()

	seed := []struct {
		action     string
		targetType string
	}{
		{"settlement.closed", "settlement"},
		{"capital.adjusted", "capital_adjustment"},
		{"capital.adjusted", "capital_adjustment"},
		{"cleanup.completed", "cleanup"},
	}
	for _, entry := range seed {
		if err := svc.Log(ctx, actor.Admin(9), entry.action, entry.targetType, nil, nil); err != nil {
			t.Fatalf("log %s: %v", entry.action, err)
		}
	}

	adjusted, err := svc.List(ctx, auditdomain.ListFilter{Action: "capital.adjusted"})
	if err != nil {
		t.Fatalf("list by action: %v", err)
	}
	if len(adjusted) != 2 {
		t.Fatalf("filtered entries = %d, want 2", len(adjusted))
	}

	byTarget, err := svc.List(ctx, auditdomain.ListFilter{TargetType: "cleanup"})
	if err != nil {
		t.Fatalf("list by target: %v", err)
	}
	if len(byTarget) != 1 {
		t.Fatalf("target entries = %d, want 1", len(byTarget))
	}

	limited, err := svc.List(ctx, auditdomain.ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("limited list: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited entries = %d, want 2", len(limited))
	}
	// Newest first: identical timestamps fall back to id ordering.
	if limited[0].Action != "cleanup.completed" {
		t.Fatalf("first entry = %s, want cleanup.completed", limited[0].Action)
	}

	future := testDay.Add(time.Hour)
	none, err := svc.List(ctx, auditdomain.ListFilter{StartAt: &future})
	if err != nil {
		t.Fatalf("windowed list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("future-window entries = %d, want 0", len(none))
	}
}
