package domain

import (
	"context"
	"errors"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	"gorm.io/gorm"
)

// ListFilter narrows an audit log listing.
type ListFilter struct {
	Action     string
	TargetType string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}

// Service writes and reads the audit trail. LogTx composes into a caller's
// transaction so the audit row commits with the action it records.
type Service interface {
	Log(ctx context.Context, who actor.Actor, action, targetType string, targetID *string, metadata map[string]any) error
	LogTx(ctx context.Context, tx *gorm.DB, who actor.Actor, action, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, filter ListFilter) ([]AuditLog, error)
}

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidActor  = errors.New("invalid_actor")
)
