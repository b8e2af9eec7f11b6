package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/hexabill/hexabill/internal/alert"
	"github.com/hexabill/hexabill/internal/balance"
	"github.com/hexabill/hexabill/internal/clock"
	"github.com/hexabill/hexabill/internal/config"
	"github.com/hexabill/hexabill/internal/customer"
	"github.com/hexabill/hexabill/internal/ledger"
	"github.com/hexabill/hexabill/internal/migration"
	"github.com/hexabill/hexabill/internal/observability"
	"github.com/hexabill/hexabill/internal/reconcile"
	"github.com/hexabill/hexabill/internal/server"
	"github.com/hexabill/hexabill/internal/settings"
	"github.com/hexabill/hexabill/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		customer.Module,
		ledger.Module,
		alert.Module,
		settings.Module,
		balance.Module,
		reconcile.Module,

		server.Module,
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
