package commands

import (
	"context"

	"github.com/urfave/cli/v3"
)

// ReputationCommands returns the reputation and bypass commands.
func ReputationCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:      "reputation",
			Usage:     "Show an account's reputation and its inputs",
			ArgsUsage: "DID",
			Action:    handleReputation(deps),
		},
		{
			Name:      "bypass",
			Usage:     "Report whether an account skips anti-spam checks",
			ArgsUsage: "DID",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "community", Aliases: []string{"c"}, Usage: "Community DID"},
			},
			Action: handleBypass(deps),
		},
	}
}

func handleReputation(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		did, err := argDID(c)
		if err != nil {
			return err
		}

		rep, err := deps.App.Reputation.Get(ctx, did)
		if err != nil {
			return err
		}
		return printJSON(rep)
	}
}

func handleBypass(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		did, err := argDID(c)
		if err != nil {
			return err
		}

		bypass, err := deps.App.Reputation.CanBypass(ctx, did, c.String("community"))
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"did": did, "canBypass": bypass})
	}
}
