package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountStatus marks whether a field operator may record transactions.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account is a field operator who records transactions on behalf of the desk.
type Account struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	Name      string        `gorm:"type:text;not null;uniqueIndex"`
	Status    AccountStatus `gorm:"type:text;not null;default:active"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

var (
	ErrInvalidName     = errors.New("invalid_account_name")
	ErrAccountNotFound = errors.New("account_not_found")
)
