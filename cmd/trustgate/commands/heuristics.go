package commands

import (
	"context"
	"fmt"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/urfave/cli/v3"
)

// HeuristicsCommands returns the behavioral flag commands.
func HeuristicsCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "flags",
			Usage: "Review behavioral flags",
			Commands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List flags, newest first",
					Flags: append([]cli.Flag{
						&cli.StringFlag{Name: "status", Usage: "pending, dismissed or action_taken"},
						&cli.StringFlag{Name: "type", Usage: "burst_voting, content_similarity or low_diversity"},
					}, pageFlags()...),
					Action: handleFlagsList(deps),
				},
				{
					Name:      "update",
					Usage:     "Resolve a flag as dismissed or action_taken",
					ArgsUsage: "ID STATUS",
					Action:    handleFlagsUpdate(deps),
				},
				{
					Name:  "run",
					Usage: "Run every detector once and store the flags",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: "community", Aliases: []string{"c"}, Usage: "Community DID, or empty for all"},
					},
					Action: handleFlagsRun(deps),
				},
			},
		},
	}
}

func handleFlagsList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		flags, err := deps.App.Heuristics.ListFlags(ctx, types.FlagFilter{
			Status:   enum.FlagStatus(c.String("status")),
			FlagType: enum.FlagType(c.String("type")),
			Limit:    int(c.Int("limit")),
			Offset:   int(c.Int("offset")),
		})
		if err != nil {
			return err
		}
		return printJSON(flags)
	}
}

func handleFlagsUpdate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("%w: ID and STATUS arguments required", types.ErrInvalidInput)
		}
		id, err := argID(c)
		if err != nil {
			return err
		}

		status := enum.FlagStatus(c.Args().Get(1))
		if err := deps.App.Heuristics.UpdateFlagStatus(ctx, id, status); err != nil {
			return err
		}
		return printJSON(map[string]any{"id": id, "status": status})
	}
}

func handleFlagsRun(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		scope, err := types.ParseScope(c.String("community"))
		if err != nil {
			return err
		}
		return printJSON(deps.App.Heuristics.RunAll(ctx, scope))
	}
}
