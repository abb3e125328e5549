package audit

import (
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(service.NewService),
)
