package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hexabill/hexabill/internal/alert"
	"github.com/hexabill/hexabill/internal/balance"
	"github.com/hexabill/hexabill/internal/clock"
	"github.com/hexabill/hexabill/internal/config"
	"github.com/hexabill/hexabill/internal/customer"
	"github.com/hexabill/hexabill/internal/ledger"
	"github.com/hexabill/hexabill/internal/observability"
	"github.com/hexabill/hexabill/internal/reconcile"
	"github.com/hexabill/hexabill/internal/settings"
	"github.com/hexabill/hexabill/pkg/db"
	"go.uber.org/fx"
)

// Headless reconciliation worker: runs the sweep scheduler without the HTTP
// surface. Pair it with REDIS_ADDR so multiple replicas elect one sweeper.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		customer.Module,
		ledger.Module,
		alert.Module,
		settings.Module,
		balance.Module,
		reconcile.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
