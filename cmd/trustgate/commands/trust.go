package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/trustgraph"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/urfave/cli/v3"
)

// recomputePollInterval is how often --wait checks the recompute status.
const recomputePollInterval = time.Second

// TrustCommands returns the trust status, seed and recompute commands.
func TrustCommands(deps *CLIDependencies) []*cli.Command {
	scopeFlag := &cli.StringFlag{
		Name:    "scope",
		Aliases: []string{"s"},
		Usage:   "Community DID, or empty for the global scope",
	}

	return []*cli.Command{
		{
			Name:  "trust",
			Usage: "Inspect account trust",
			Commands: []*cli.Command{
				{
					Name:      "status",
					Usage:     "Show an account's trust standing in a community",
					ArgsUsage: "DID",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "community", Aliases: []string{"c"}, Usage: "Community DID"},
					},
					Action: handleTrustStatus(deps),
				},
				{
					Name:   "metrics",
					Usage:  "Show trust system counters",
					Action: handleTrustMetrics(deps),
				},
			},
		},
		{
			Name:  "seeds",
			Usage: "Manage trust seeds",
			Commands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "List explicit and implicit seeds",
					Flags:  []cli.Flag{scopeFlag},
					Action: handleSeedsList(deps),
				},
				{
					Name:      "create",
					Usage:     "Add an explicit seed",
					ArgsUsage: "DID",
					Flags: []cli.Flag{
						scopeFlag,
						&cli.StringFlag{Name: "added-by", Usage: "DID of the admin adding the seed"},
						&cli.StringFlag{Name: "reason", Usage: "Why the account is trusted"},
					},
					Action: handleSeedsCreate(deps),
				},
				{
					Name:      "delete",
					Usage:     "Remove an explicit seed",
					ArgsUsage: "ID",
					Action:    handleSeedsDelete(deps),
				},
			},
		},
		{
			Name:  "recompute",
			Usage: "Trust score recomputation",
			Commands: []*cli.Command{
				{
					Name:  "trigger",
					Usage: "Request a trust score recompute",
					Description: `Queues a recompute for the scope on the shared job list; a running
worker picks it up. The request is dropped when a recompute for the same
scope ran within the throttle window. With --wait the command blocks until
the job reaches a terminal state.`,
					Flags: []cli.Flag{
						scopeFlag,
						&cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Wait for the recompute to finish"},
						&cli.DurationFlag{Name: "timeout", Usage: "Maximum time to wait", Value: 10 * time.Minute},
					},
					Action: handleRecomputeTrigger(deps),
				},
				{
					Name:   "status",
					Usage:  "Show the last recompute outcome for a scope",
					Flags:  []cli.Flag{scopeFlag},
					Action: handleRecomputeStatus(deps),
				},
			},
		},
	}
}

func handleTrustStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		did, err := argDID(c)
		if err != nil {
			return err
		}

		status, err := deps.App.Trust.Status(ctx, did, c.String("community"))
		if err != nil {
			return err
		}
		return printJSON(status)
	}
}

func handleTrustMetrics(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		metrics, err := deps.App.Trust.Metrics(ctx)
		if err != nil {
			return err
		}
		return printJSON(metrics)
	}
}

func handleSeedsList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		var scope *types.Scope
		if c.IsSet("scope") {
			parsed, err := types.ParseScope(c.String("scope"))
			if err != nil {
				return err
			}
			scope = &parsed
		}

		seeds, err := deps.App.Trust.ListSeeds(ctx, scope)
		if err != nil {
			return err
		}
		return printJSON(seeds)
	}
}

func handleSeedsCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		did, err := argDID(c)
		if err != nil {
			return err
		}
		scope, err := types.ParseScope(c.String("scope"))
		if err != nil {
			return err
		}

		seed, err := deps.App.Trust.CreateSeed(ctx, did, scope, c.String("added-by"), c.String("reason"))
		if err != nil {
			return err
		}
		return printJSON(seed)
	}
}

func handleSeedsDelete(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		id, err := argID(c)
		if err != nil {
			return err
		}

		if err := deps.App.Trust.DeleteSeed(ctx, id); err != nil {
			return err
		}
		return printJSON(map[string]int64{"deleted": id})
	}
}

func handleRecomputeTrigger(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		scope, err := types.ParseScope(c.String("scope"))
		if err != nil {
			return err
		}

		accepted, err := deps.App.Trust.TriggerRecompute(ctx, scope)
		if err != nil {
			return err
		}

		if !accepted || !c.Bool("wait") {
			return printJSON(map[string]any{"scope": scope, "accepted": accepted})
		}

		status, err := waitForRecompute(ctx, deps, scope, c.Duration("timeout"))
		if err != nil {
			return err
		}
		return printJSON(status)
	}
}

func handleRecomputeStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		scope, err := types.ParseScope(c.String("scope"))
		if err != nil {
			return err
		}

		status, err := deps.App.Trust.RecomputeStatus(ctx, scope)
		if err != nil {
			return err
		}
		if status == nil {
			return fmt.Errorf("recompute status for %s %w", scope, types.ErrNotFound)
		}
		return printJSON(status)
	}
}

// waitForRecompute polls until a worker finishes the job.
func waitForRecompute(
	ctx context.Context, deps *CLIDependencies, scope types.Scope, timeout time.Duration,
) (*trustgraph.RecomputeStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		status, err := deps.App.Trust.RecomputeStatus(ctx, scope)
		if err != nil {
			return nil, err
		}

		if status != nil {
			switch status.State {
			case trustgraph.StateSucceeded, trustgraph.StateDropped:
				return status, nil
			case trustgraph.StateFailed:
				return status, fmt.Errorf("recompute failed: %s", status.Error)
			}
		}

		if utils.ContextSleep(ctx, recomputePollInterval) == utils.SleepCancelled {
			return status, ErrRecomputeTimeout
		}
	}
}
