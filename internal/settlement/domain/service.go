package domain

import (
	"context"
	"errors"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ExpenseLine is one user-supplied expense or income entry for a closing.
type ExpenseLine struct {
	Name   string
	Amount decimal.Decimal
	Kind   ExpenseKind
}

// Preview shows what a settlement would close right now, without mutating
// anything.
type Preview struct {
	CanSettle        bool
	TransactionCount int64

	OutgoingProfit decimal.Decimal
	InstantProfit  decimal.Decimal
	Profit         decimal.Decimal

	RMBIncomeTotal  decimal.Decimal
	RMBOutcomeTotal decimal.Decimal
	HKDIncomeTotal  decimal.Decimal
	HKDOutcomeTotal decimal.Decimal

	CurrentCapital    decimal.Decimal
	CurrentHKDBalance decimal.Decimal
}

// ExecuteRequest closes the current unsettled batch.
type ExecuteRequest struct {
	Expenses       []ExpenseLine
	Notes          string
	Actor          actor.Actor
	SettlementDate time.Time
}

// ListResponse is one page of settlements, newest sequence first.
type ListResponse struct {
	Settlements []Settlement
	Total       int64
	Page        int
	PerPage     int
}

// SettlementDetail is a settlement plus its expense lines.
type SettlementDetail struct {
	Settlement Settlement
	Expenses   []SettlementExpense
}

// Service is the settlement engine: it atomically converts the unsettled
// transaction batch into an immutable closing record, rolls capital and
// HKD balance state forward, and resets the live statistics.
type Service interface {
	Preview(ctx context.Context) (Preview, error)
	Execute(ctx context.Context, req ExecuteRequest) (*Settlement, error)
	List(ctx context.Context, page, perPage int) (ListResponse, error)
	Get(ctx context.Context, id snowflake.ID) (*SettlementDetail, error)

	// CurrentCapital and CurrentHKDBalance read the newest adjustment row,
	// falling back to the configured bootstrap defaults.
	CurrentCapital(ctx context.Context) (decimal.Decimal, error)
	CurrentHKDBalance(ctx context.Context) (decimal.Decimal, error)

	// AdjustCapital and AdjustHKDBalance append manual adjustment rows.
	AdjustCapital(ctx context.Context, amount decimal.Decimal, who actor.Actor, notes string) (*CapitalAdjustment, error)
	AdjustHKDBalance(ctx context.Context, amount decimal.Decimal, who actor.Actor, notes string) (*HKDBalanceAdjustment, error)
}

var (
	ErrNothingToSettle    = errors.New("nothing_to_settle")
	ErrSettlementNotFound = errors.New("settlement_not_found")
	ErrInvalidExpense     = errors.New("invalid_expense_line")
	ErrInvalidActor       = errors.New("invalid_actor")
	ErrInvalidDate        = errors.New("invalid_settlement_date")
)
