package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Currency identifies one side of the exchange desk's float.
type Currency string

const (
	CurrencyRMB Currency = "RMB"
	CurrencyHKD Currency = "HKD"
)

// Flow represents the cash direction of a transaction against a channel.
type Flow string

const (
	FlowIncome  Flow = "income"
	FlowOutcome Flow = "outcome"
)

// ChannelBalance is a per (channel, currency, day) running balance snapshot.
// Rows are created lazily on the first movement of the day, seeding
// InitialAmount from the previous day's CurrentBalance. Only the ledger's
// apply/revert operations mutate a row, under a row lock.
type ChannelBalance struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	ChannelID      snowflake.ID    `gorm:"not null;index;uniqueIndex:ux_channel_balances_day,priority:1"`
	Currency       Currency        `gorm:"type:text;not null;uniqueIndex:ux_channel_balances_day,priority:2"`
	BalanceDate    time.Time       `gorm:"not null;uniqueIndex:ux_channel_balances_day,priority:3"`
	InitialAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	IncomeAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	OutcomeAmount  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ChannelBalance) TableName() string { return "channel_balances" }
