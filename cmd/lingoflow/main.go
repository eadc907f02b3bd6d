package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/migration"
	"github.com/smallbiznis/lingoflow/internal/observability"
	"github.com/smallbiznis/lingoflow/internal/scheduler"
	"github.com/smallbiznis/lingoflow/internal/server"
	"github.com/smallbiznis/lingoflow/pkg/db"
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
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
