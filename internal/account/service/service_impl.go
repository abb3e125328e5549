package service

import (
	"context"
	"errors"
	"strings"
	"time"

	accountdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/account/domain"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) accountdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, name string) (*accountdomain.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, accountdomain.ErrInvalidName
	}

	now := time.Now().UTC()
	record := &accountdomain.Account{
		ID:        s.genID.Generate(),
		Name:      name,
		Status:    accountdomain.AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*accountdomain.Account, error) {
	var record accountdomain.Account
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accountdomain.ErrAccountNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) List(ctx context.Context) ([]accountdomain.Account, error) {
	var records []accountdomain.Account
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
