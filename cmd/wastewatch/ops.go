package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wastewatch/internal/service"
	"wastewatch/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/k0kubun/pp/v3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// cliActor is the identity recorded on events written from the command line.
var cliActor = types.Identity{UserID: "cli", Role: types.RoleAuthority}

var autoAssignCommand = &cli.Command{
	Name:  "auto-assign",
	Usage: "Assign every pending report to an active worker, round-robin",
	Action: func(c *cli.Context) error {
		return withBackend(c, func(ctx context.Context, app *service.Service, logger *logrus.Logger) error {
			result, err := app.AutoAssignAll(ctx, cliActor)
			if err != nil {
				return err
			}

			logger.WithFields(logrus.Fields{
				"pending":  result.PendingCount,
				"workers":  result.WorkerCount,
				"assigned": len(result.Assigned),
				"aborted":  result.Aborted,
			}).Info("auto-assign finished")

			pp.Println(result)
			return nil
		})
	},
}

var slaCommand = &cli.Command{
	Name:  "sla",
	Usage: "List reports that are past their SLA deadline",
	Action: func(c *cli.Context) error {
		return withBackend(c, func(ctx context.Context, app *service.Service, _ *logrus.Logger) error {
			breached, err := app.BreachedReports(ctx)
			if err != nil {
				return err
			}

			if len(breached) == 0 {
				fmt.Println("No reports past their SLA")
				return nil
			}

			for _, view := range breached {
				fmt.Printf("%s\t%s\t%s\t%s\t%s\n", view.Code, view.Status, view.Severity, view.SLALabel, view.Address)
			}
			return nil
		})
	},
}

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "Print a report with its images and event history",
	ArgsUsage: "<report-id>",
	Action: func(c *cli.Context) error {
		reportID := c.Args().First()
		if reportID == "" {
			return fmt.Errorf("report id is required")
		}

		return withBackend(c, func(ctx context.Context, app *service.Service, _ *logrus.Logger) error {
			view, err := app.Report(ctx, reportID)
			if err != nil {
				return err
			}

			events, err := app.ReportEvents(ctx, reportID)
			if err != nil {
				return err
			}

			pp.Println(view)
			pp.Println(events)
			return nil
		})
	},
}

// withBackend runs fn against the database backed service and tears it down
// afterwards.
func withBackend(c *cli.Context, fn func(ctx context.Context, app *service.Service, logger *logrus.Logger) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(c, false)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	b, err := buildBackend(ctx, cfg, logger, false, func() (aws.Config, error) {
		return loadAWSConfig(ctx)
	})
	if err != nil {
		return err
	}
	defer b.Close()

	return fn(ctx, b.app, logger)
}
