package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Type classifies a transaction. Only income and outcome move channel cash
// balances; exchange and instant_buyout contribute profit only.
type Type string

const (
	TypeIncome        Type = "income"
	TypeOutcome       Type = "outcome"
	TypeExchange      Type = "exchange"
	TypeInstantBuyout Type = "instant_buyout"
)

// Status tracks the processing outcome of a transaction. It is
// informational and carries no ledger invariants.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// SettlementStatus is the lifecycle phase that governs immutability.
type SettlementStatus string

const (
	SettlementStatusUnsettled SettlementStatus = "unsettled"
	SettlementStatusSettled   SettlementStatus = "settled"
)

// Transaction is a financial event recorded by a field operator. Once
// settled it can be neither updated nor deleted.
type Transaction struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	UUID string       `gorm:"column:uuid;type:text;not null;uniqueIndex"`
	Type Type         `gorm:"type:text;not null;index"`

	Status    Status       `gorm:"type:text;not null;default:pending"`
	ChannelID snowflake.ID `gorm:"not null;index"`
	AccountID snowflake.ID `gorm:"not null;index"`

	RMBAmount    decimal.Decimal `gorm:"column:rmb_amount;type:decimal(20,4);not null;default:0"`
	HKDAmount    decimal.Decimal `gorm:"column:hkd_amount;type:decimal(20,4);not null;default:0"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	// Profit components are fixed at entry time and summed by settlement,
	// never recomputed from raw amounts.
	Profit        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	InstantRate   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	InstantProfit decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	SettlementStatus SettlementStatus `gorm:"type:text;not null;default:unsettled;index"`
	SettlementID     *snowflake.ID    `gorm:"index"`
	SettlementDate   *time.Time

	TransactionDate time.Time `gorm:"not null;index"`
	Notes           string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }

// MovesCash reports whether the transaction type affects channel balances.
func (t Type) MovesCash() bool {
	return t == TypeIncome || t == TypeOutcome
}

// Valid reports whether the type is one of the four known kinds.
func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeOutcome, TypeExchange, TypeInstantBuyout:
		return true
	}
	return false
}

// TransactionDraft is an uncommitted entry; drafts have no settlement
// concept and are always deletable.
type TransactionDraft struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Type      Type         `gorm:"type:text;not null"`
	ChannelID snowflake.ID `gorm:"not null;index"`
	AccountID snowflake.ID `gorm:"not null;index"`

	RMBAmount    decimal.Decimal `gorm:"column:rmb_amount;type:decimal(20,4);not null;default:0"`
	HKDAmount    decimal.Decimal `gorm:"column:hkd_amount;type:decimal(20,4);not null;default:0"`
	ExchangeRate decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	Notes     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TransactionDraft) TableName() string { return "transaction_drafts" }

// TransactionImage is a stored receipt photo. An image with neither a
// transaction nor a draft reference is an orphan and eligible for cleanup.
type TransactionImage struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	TransactionID *snowflake.ID `gorm:"index"`
	DraftID       *snowflake.ID `gorm:"index"`
	Path          string        `gorm:"type:text;not null"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TransactionImage) TableName() string { return "transaction_images" }

var (
	ErrImmutableRecord     = errors.New("immutable_settled_record")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrInvalidType         = errors.New("invalid_transaction_type")
	ErrInvalidStatus       = errors.New("invalid_transaction_status")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidRate         = errors.New("invalid_exchange_rate")
	ErrInvalidChannel      = errors.New("invalid_channel")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidDate         = errors.New("invalid_transaction_date")
)
