package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// New opens the database connection with a busy timeout so lock contention
// surfaces as a retryable error instead of blocking indefinitely.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_fk=1", cfg.DatabasePath)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			log.Info("closing database connection")
			return sqlDB.Close()
		},
	})

	return conn, nil
}

// ForUpdate adds a row lock on dialects that support it. SQLite has no
// SELECT ... FOR UPDATE; its single-writer transaction model already
// serializes these paths, so the clause is omitted there.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsLockContention reports whether an error came from a lock wait timeout.
// Callers map this to a retryable error for the client.
func IsLockContention(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "could not obtain lock")
}

// Module provides the gorm connection.
var Module = fx.Module("db",
	fx.Provide(New),
)
