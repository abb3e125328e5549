package seed

import (
	"context"
	"errors"
	"time"

	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var defaultChannelNames = []string{
	"counter",
	"bank_transfer",
}

// EnsureDefaultChannels seeds the bootstrap channels so a fresh install can
// record transactions immediately. Safe to run on every startup.
func EnsureDefaultChannels(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range defaultChannelNames {
			if err := ensureChannelTx(ctx, tx, node, name); err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureChannelTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string) error {
	var channel channeldomain.Channel
	err := tx.WithContext(ctx).Where("name = ?", name).First(&channel).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	now := time.Now().UTC()
	channel = channeldomain.Channel{
		ID:        node.Generate(),
		Name:      name,
		Status:    channeldomain.ChannelStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&channel).Error
}
