package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AdjustmentType tags how a capital or balance change originated.
type AdjustmentType string

const (
	AdjustmentTypeManual     AdjustmentType = "manual"
	AdjustmentTypeSettlement AdjustmentType = "settlement"
	AdjustmentTypeSystem     AdjustmentType = "system"
)

// ExpenseKind distinguishes deductions from additions on a settlement.
type ExpenseKind string

const (
	ExpenseKindExpense ExpenseKind = "expense"
	ExpenseKindIncome  ExpenseKind = "income"
)

// Settlement is an immutable closing record for a batch of transactions.
// SequenceNumber is the sole strictly increasing ordering key; multiple
// settlements may share a calendar date.
type Settlement struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	SequenceNumber int64        `gorm:"not null;uniqueIndex"`

	PreviousCapital    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	PreviousHKDBalance decimal.Decimal `gorm:"column:previous_hkd_balance;type:decimal(20,4);not null;default:0"`

	OutgoingProfit decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	InstantProfit  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Profit         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	OtherExpensesTotal decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	OtherIncomesTotal  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	NewCapital    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	NewHKDBalance decimal.Decimal `gorm:"column:new_hkd_balance;type:decimal(20,4);not null;default:0"`

	SettlementRate  decimal.Decimal `gorm:"type:decimal(20,3);not null;default:0"`
	RMBBalanceTotal decimal.Decimal `gorm:"column:rmb_balance_total;type:decimal(20,4);not null;default:0"`

	TransactionCount int64     `gorm:"not null;default:0"`
	SettlementDate   time.Time `gorm:"not null;index"`
	Notes            string    `gorm:"type:text"`

	ActorKind string       `gorm:"type:text;not null"`
	ActorID   snowflake.ID `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Settlement) TableName() string { return "settlements" }

// SettlementExpense is one expense or income line attached to a settlement.
type SettlementExpense struct {
	ID           snowflake.ID    `gorm:"primaryKey"`
	SettlementID snowflake.ID    `gorm:"not null;index"`
	Name         string          `gorm:"type:text;not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Kind         ExpenseKind     `gorm:"type:text;not null"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SettlementExpense) TableName() string { return "settlement_expenses" }

// CapitalAdjustment is the append-only audit trail of system capital. The
// current capital is the AfterAmount of the newest row; there is no
// separate mutable balance field.
type CapitalAdjustment struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	BeforeAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AfterAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AdjustmentAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AdjustmentType   AdjustmentType  `gorm:"type:text;not null"`
	SettlementID     *snowflake.ID   `gorm:"index"`
	ActorKind        string          `gorm:"type:text;not null"`
	ActorID          snowflake.ID    `gorm:"not null"`
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CapitalAdjustment) TableName() string { return "capital_adjustments" }

// HKDBalanceAdjustment is the append-only audit trail of the desk's HKD till.
type HKDBalanceAdjustment struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	BeforeAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AfterAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AdjustmentAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AdjustmentType   AdjustmentType  `gorm:"type:text;not null"`
	SettlementID     *snowflake.ID   `gorm:"index"`
	ActorKind        string          `gorm:"type:text;not null"`
	ActorID          snowflake.ID    `gorm:"not null"`
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (HKDBalanceAdjustment) TableName() string { return "hkd_balance_adjustments" }

// BalanceAdjustment records a manual change to one channel's balance. The
// engine has no write path for these rows; they are read and cascade-deleted
// with the settlement they reference.
type BalanceAdjustment struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	ChannelID        snowflake.ID    `gorm:"not null;index"`
	BeforeAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AfterAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AdjustmentAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	AdjustmentType   AdjustmentType  `gorm:"type:text;not null"`
	SettlementID     *snowflake.ID   `gorm:"index"`
	ActorKind        string          `gorm:"type:text;not null"`
	ActorID          snowflake.ID    `gorm:"not null"`
	Notes            string          `gorm:"type:text"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BalanceAdjustment) TableName() string { return "balance_adjustments" }
