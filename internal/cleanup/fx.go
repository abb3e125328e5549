package cleanup

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/cleanup/service"
	"go.uber.org/fx"
)

var Module = fx.Module("cleanup.service",
	fx.Provide(service.NewService),
)
