package balance

import (
	"github.com/hexabill/hexabill/internal/balance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("balance",
	fx.Provide(service.New),
)
