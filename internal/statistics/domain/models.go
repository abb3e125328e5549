package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// StatType scopes a counter row to the whole desk or to one channel.
type StatType string

const (
	StatTypeDashboard StatType = "dashboard"
	StatTypeChannel   StatType = "channel"
)

// CurrentStatistic is a denormalized counter row over the currently
// unsettled transaction population. Rows are maintained in lockstep with
// transaction creates/deletes and wiped after every settlement.
type CurrentStatistic struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	StatType    StatType     `gorm:"type:text;not null;uniqueIndex:ux_current_statistics_scope,priority:1"`
	ReferenceID snowflake.ID `gorm:"not null;default:0;uniqueIndex:ux_current_statistics_scope,priority:2"`

	TransactionCount   int64 `gorm:"not null;default:0"`
	IncomeCount        int64 `gorm:"not null;default:0"`
	OutcomeCount       int64 `gorm:"not null;default:0"`
	ExchangeCount      int64 `gorm:"not null;default:0"`
	InstantBuyoutCount int64 `gorm:"not null;default:0"`

	RMBIncomeTotal     decimal.Decimal `gorm:"column:rmb_income_total;type:decimal(20,4);not null;default:0"`
	RMBOutcomeTotal    decimal.Decimal `gorm:"column:rmb_outcome_total;type:decimal(20,4);not null;default:0"`
	HKDIncomeTotal     decimal.Decimal `gorm:"column:hkd_income_total;type:decimal(20,4);not null;default:0"`
	HKDOutcomeTotal    decimal.Decimal `gorm:"column:hkd_outcome_total;type:decimal(20,4);not null;default:0"`
	InstantProfitTotal decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CurrentStatistic) TableName() string { return "current_statistics" }

var (
	ErrInvalidStatType  = errors.New("invalid_stat_type")
	ErrInvalidReference = errors.New("invalid_reference")
)
