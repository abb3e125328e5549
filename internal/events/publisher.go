package events

import (
	"context"
	"time"

	pkgdb "github.com/ShaneWong116/CurrencyExchange-sub000/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	drainInterval = 15 * time.Second
	drainBatch    = 100
)

// Publisher drains the outbox in the background. Events currently publish
// to the structured log stream; the stored rows keep an at-least-once
// contract for a future broker hookup.
type Publisher struct {
	db  *gorm.DB
	log *zap.Logger

	stop chan struct{}
	done chan struct{}
}

func NewPublisher(db *gorm.DB, log *zap.Logger) *Publisher {
	return &Publisher{
		db:   db,
		log:  log.Named("events.publisher"),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if err := p.DrainOnce(context.Background()); err != nil {
				p.log.Warn("outbox drain failed", zap.Error(err))
			}
		}
	}
}

// DrainOnce publishes one batch of pending events. Rows are locked so
// concurrent drains never double-publish.
func (p *Publisher) DrainOnce(ctx context.Context) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []ExchangeEvent
		err := pkgdb.ForUpdate(tx.WithContext(ctx)).
			Where("published = ?", false).
			Order("id ASC").
			Limit(drainBatch).
			Find(&pending).Error
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		ids := make([]any, 0, len(pending))
		for i := range pending {
			ids = append(ids, pending[i].ID)
			p.log.Info("event published",
				zap.String("event_type", pending[i].EventType),
				zap.String("event_id", pending[i].ID.String()),
			)
		}

		return tx.WithContext(ctx).Model(&ExchangeEvent{}).
			Where("id IN ?", ids).
			Update("published", true).Error
	})
}

func registerPublisher(lc fx.Lifecycle, p *Publisher) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go p.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(p.stop)
			select {
			case <-p.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
