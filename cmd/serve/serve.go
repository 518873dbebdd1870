// Package serve implements the serve command: the HTTP API with optional
// scheduled runs.
package serve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/link-aggregator/cmd/common"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/api"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/coordinator"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/domain"
	"github.com/jonesrussell/north-cloud/link-aggregator/internal/logger"
)

// Command returns the serve command.
func Command(opts *common.Options) *cobra.Command {
	var schedule string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serves the latest snapshot and run control over HTTP. With --schedule (or the
schedule config key) runs are also triggered on a cron schedule, for example
"@every 30m" or "*/15 * * * *".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := common.NewDeps(ctx, *opts)
			if err != nil {
				return err
			}
			defer deps.Close()

			if schedule == "" {
				schedule = deps.Config.Schedule
			}
			if schedule != "" {
				scheduler, schedErr := NewScheduler(ctx, schedule, deps.Coordinator, deps.Logger)
				if schedErr != nil {
					return schedErr
				}
				scheduler.Start()
				defer func() { <-scheduler.Stop().Done() }()
			}

			health := func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
			handler := api.NewHandler(deps.Coordinator, deps.Cache, health, deps.Logger)
			router := api.NewRouter(handler, deps.Registry, deps.Logger)

			srv := api.NewServer(
				deps.Config.Server.Address,
				deps.Config.Server.ReadTimeout,
				deps.Config.Server.WriteTimeout,
				router,
				deps.Logger,
			)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&schedule, "schedule", "", `cron spec for scheduled runs (e.g. "@every 30m")`)

	return cmd
}

// Runner runs one fetch cycle.
type Runner interface {
	Run(ctx context.Context) (*domain.Snapshot, error)
}

// NewScheduler returns a cron scheduler that runs r on spec. Runs skipped
// because another run holds the flag are logged, not treated as failures.
func NewScheduler(ctx context.Context, spec string, r Runner, log logger.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))

	_, err := c.AddFunc(spec, func() {
		_, runErr := r.Run(ctx)
		switch {
		case errors.Is(runErr, coordinator.ErrRunInProgress):
			log.Info("Scheduled run skipped, another run is in progress")
		case runErr != nil:
			log.Error("Scheduled run failed", logger.Error(runErr))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return c, nil
}
