package transaction

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transaction.service",
	fx.Provide(service.NewService),
)
