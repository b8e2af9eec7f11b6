package customer

import (
	"github.com/hexabill/hexabill/internal/customer/repository"
	"github.com/hexabill/hexabill/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
