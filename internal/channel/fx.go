package channel

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/service"
	"go.uber.org/fx"
)

var Module = fx.Module("channel.service",
	fx.Provide(service.NewService),
)
