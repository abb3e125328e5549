package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog captures an immutable record of a financial or administrative
// action: settlement closings, manual adjustments, cleanup runs.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	ActorKind  string            `gorm:"type:text;not null"`
	ActorID    snowflake.ID      `gorm:"not null"`
	Action     string            `gorm:"type:text;not null;index"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }
