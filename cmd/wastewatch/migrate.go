package main

import (
	"context"
	"fmt"

	"wastewatch/internal/db"

	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply pending database migrations",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c, false)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg.LogLevel)
		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		applied, err := db.Migrate(ctx, pool, cfg.DatabaseSchema, logger)
		if err != nil {
			return err
		}

		logger.WithField("applied", len(applied)).Info("migrations complete")
		return nil
	},
}
