package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/clock"
	"github.com/ecoledger/ecoledger/internal/compliance"
	"github.com/ecoledger/ecoledger/internal/config"
	"github.com/ecoledger/ecoledger/internal/consumption"
	"github.com/ecoledger/ecoledger/internal/credit"
	"github.com/ecoledger/ecoledger/internal/dashboard"
	"github.com/ecoledger/ecoledger/internal/emission"
	"github.com/ecoledger/ecoledger/internal/events"
	"github.com/ecoledger/ecoledger/internal/factor"
	"github.com/ecoledger/ecoledger/internal/migration"
	"github.com/ecoledger/ecoledger/internal/observability"
	"github.com/ecoledger/ecoledger/internal/report"
	"github.com/ecoledger/ecoledger/internal/scheduler"
	"github.com/ecoledger/ecoledger/internal/seed"
	"github.com/ecoledger/ecoledger/internal/server"
	"github.com/ecoledger/ecoledger/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		events.Module,

		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			return seed.EnsureDefaultOrg(conn)
		}),

		factor.Module,
		consumption.Module,
		emission.Module,
		dashboard.Module,
		compliance.Module,
		credit.Module,
		report.Module,
		scheduler.Module,

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
