package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest carries a new financial event. UUID is the
// idempotency key: a repeated UUID returns the stored row unchanged.
type CreateTransactionRequest struct {
	UUID      string
	Type      Type
	ChannelID snowflake.ID
	AccountID snowflake.ID

	RMBAmount    decimal.Decimal
	HKDAmount    decimal.Decimal
	ExchangeRate decimal.Decimal

	Profit        decimal.Decimal
	InstantRate   decimal.Decimal
	InstantProfit decimal.Decimal

	TransactionDate time.Time
	Notes           string
}

// UpdateTransactionRequest covers the only mutable fields of an unsettled
// transaction.
type UpdateTransactionRequest struct {
	Status *Status
	Notes  *string
}

// ListTransactionsRequest filters the transaction listing.
type ListTransactionsRequest struct {
	ChannelID        snowflake.ID
	SettlementStatus SettlementStatus
	From             *time.Time
	To               *time.Time
	Page             int
	PerPage          int
}

// ListTransactionsResponse is one page of transactions plus the total count.
type ListTransactionsResponse struct {
	Transactions []Transaction
	Total        int64
	Page         int
	PerPage      int
}

// Service is the transaction lifecycle. Ledger and statistics side effects
// are explicit sequential steps inside one database transaction, not
// hidden hooks.
type Service interface {
	Create(ctx context.Context, req CreateTransactionRequest) (*Transaction, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateTransactionRequest) (*Transaction, error)
	Delete(ctx context.Context, id snowflake.ID) error
	Get(ctx context.Context, id snowflake.ID) (*Transaction, error)
	List(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResponse, error)
}
