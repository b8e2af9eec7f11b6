package ledger

import (
	"github.com/hexabill/hexabill/internal/ledger/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger",
	fx.Provide(repository.Provide),
	fx.Provide(NewSchemaCheck),
)
