package service

import (
	"context"
	"strings"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Log(ctx context.Context, who actor.Actor, action, targetType string, targetID *string, metadata map[string]any) error {
	return s.LogTx(ctx, s.db, who, action, targetType, targetID, metadata)
}

func (s *Service) LogTx(ctx context.Context, tx *gorm.DB, who actor.Actor, action, targetType string, targetID *string, metadata map[string]any) error {
	if !who.Valid() {
		return auditdomain.ErrInvalidActor
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	payload := datatypes.JSONMap{}
	for key, value := range metadata {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	entry := &auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorKind:  string(who.Kind),
		ActorID:    who.ID,
		Action:     action,
		TargetType: strings.TrimSpace(targetType),
		TargetID:   targetID,
		Metadata:   payload,
		CreatedAt:  s.clock.Now(),
	}
	return tx.WithContext(ctx).Create(entry).Error
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := s.db.WithContext(ctx).Model(&auditdomain.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.StartAt != nil {
		query = query.Where("created_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		query = query.Where("created_at <= ?", filter.EndAt.UTC())
	}

	var entries []auditdomain.AuditLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
