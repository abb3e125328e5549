package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// ChannelStatus marks whether a channel accepts new transactions.
type ChannelStatus string

const (
	ChannelStatusActive   ChannelStatus = "active"
	ChannelStatusInactive ChannelStatus = "inactive"
)

// Channel is a payment or collection conduit. It owns ledger rows and
// transactions; identity is immutable, status is not.
type Channel struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	Name      string        `gorm:"type:text;not null;uniqueIndex"`
	Status    ChannelStatus `gorm:"type:text;not null;default:active"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Channel) TableName() string { return "channels" }

var (
	ErrInvalidName     = errors.New("invalid_channel_name")
	ErrInvalidStatus   = errors.New("invalid_channel_status")
	ErrChannelNotFound = errors.New("channel_not_found")
	ErrChannelInactive = errors.New("channel_inactive")
)
