package alert

import (
	"github.com/hexabill/hexabill/internal/alert/repository"
	"github.com/hexabill/hexabill/internal/alert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alert",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
