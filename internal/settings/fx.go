package settings

import (
	"github.com/hexabill/hexabill/internal/settings/repository"
	"github.com/hexabill/hexabill/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
