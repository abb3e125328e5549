package account

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(service.NewService),
)
