package main

import (
	"context"
	"fmt"

	"wastewatch/internal/db"
	"wastewatch/internal/lifecycle"
	"wastewatch/internal/seed"
	"wastewatch/internal/store"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with fake citizens, workers and reports",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of fake reports to create",
			Value:   25,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete previously seeded reports first",
		},
		&cli.Float64Flag{
			Name:  "lat",
			Usage: "Latitude reports are scattered around",
			Value: defaultSeedCenter.Latitude,
		},
		&cli.Float64Flag{
			Name:  "lng",
			Usage: "Longitude reports are scattered around",
			Value: defaultSeedCenter.Longitude,
		},
		&cli.StringFlag{
			Name:  "city",
			Usage: "City written on seeded reports",
			Value: defaultSeedCenter.City,
		},
	},
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

		logger.Info("Connected to database")

		logger.Info("Seeding citizens...")
		if err := seed.SeedFakeCitizens(ctx, store.NewProfileRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed citizens: %w", err)
		}

		logger.Info("Seeding workers...")
		if err := seed.SeedFakeWorkers(ctx, store.NewWorkerRepository(pool)); err != nil {
			return fmt.Errorf("failed to seed workers: %w", err)
		}

		logger.Info("Seeding reports...")
		center := seed.Center{Latitude: c.Float64("lat"), Longitude: c.Float64("lng"), City: c.String("city")}
		policy := lifecycle.NewPolicy(cfg.SLADefaultHours, cfg.SLASeverityHours)
		reports := reportRepos{store.NewReportRepository(pool), store.NewReportImageRepository(pool)}
		if err := seed.SeedFakeReports(ctx, reports, policy, center, c.Int("count"), c.Bool("reset")); err != nil {
			return fmt.Errorf("failed to seed reports: %w", err)
		}

		logger.Info("Seed data created successfully")
		return nil
	},
}

// reportRepos joins the report and image tables into the single store the
// report seeder writes through.
type reportRepos struct {
	*store.ReportRepository
	*store.ReportImageRepository
}
