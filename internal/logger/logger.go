package logger

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// New builds the root logger for the service.
func New(cfg config.Config) (*zap.Logger, error) {
	var log *zap.Logger
	var err error
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// Module provides the root zap logger.
var Module = fx.Module("logger",
	fx.Provide(New),
)
