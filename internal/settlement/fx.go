package settlement

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(service.NewService),
)
