package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/cache"
	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

// channelCacheTTL bounds staleness of the hot Get path; status flips are
// written through, so the TTL only covers out-of-band writes.
const channelCacheTTL = 30 * time.Second

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	cache cache.Cache[snowflake.ID, channeldomain.Channel]
}

func NewService(p Params) channeldomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("channel.service"),
		genID: p.GenID,
		clock: p.Clock,
		cache: cache.NewTTLCache[snowflake.ID, channeldomain.Channel](),
	}
}

func (s *Service) Create(ctx context.Context, req channeldomain.CreateChannelRequest) (*channeldomain.Channel, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, channeldomain.ErrInvalidName
	}

	now := s.now()
	record := &channeldomain.Channel{
		ID:        s.genID.Generate(),
		Name:      name,
		Status:    channeldomain.ChannelStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	s.cache.Set(record.ID, *record, channelCacheTTL)
	return record, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*channeldomain.Channel, error) {
	if cached, ok := s.cache.Get(id); ok {
		return &cached, nil
	}
	return s.GetFresh(ctx, id)
}

// GetFresh bypasses the cache and refreshes it from the stored row. Gates
// that must see a status flip immediately read through this path.
func (s *Service) GetFresh(ctx context.Context, id snowflake.ID) (*channeldomain.Channel, error) {
	var record channeldomain.Channel
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.cache.Delete(id)
			return nil, channeldomain.ErrChannelNotFound
		}
		return nil, err
	}
	s.cache.Set(record.ID, record, channelCacheTTL)
	return &record, nil
}

func (s *Service) List(ctx context.Context) ([]channeldomain.Channel, error) {
	var records []channeldomain.Channel
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, status channeldomain.ChannelStatus) (*channeldomain.Channel, error) {
	if status != channeldomain.ChannelStatusActive && status != channeldomain.ChannelStatusInactive {
		return nil, channeldomain.ErrInvalidStatus
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Status = status
	record.UpdatedAt = s.now()
	if err := s.db.WithContext(ctx).Model(&channeldomain.Channel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": record.UpdatedAt}).Error; err != nil {
		return nil, err
	}
	s.cache.Set(record.ID, *record, channelCacheTTL)
	return record, nil
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock.Now()
	}
	return time.Now().UTC()
}
