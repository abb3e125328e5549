package statistics

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("statistics.service",
	fx.Provide(service.NewService),
)
