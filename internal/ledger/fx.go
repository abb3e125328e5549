package ledger

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(service.NewService),
)
