package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/barazo-forum/barazo-api-sub002/internal/antispam"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"
)

// AntiSpamCommands returns the submission gate and settings commands.
func AntiSpamCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "check",
			Usage: "Run the anti-spam gate over a submission",
			Description: `Evaluates a topic or reply without publishing it. When --uri is given
and the submission is held, one queue item per hold reason is recorded.

Examples:
  trustgate check --author did:plc:abc --community did:plc:forum --type topic --title "Hi" --content "..."
  trustgate check -a did:plc:abc -c did:plc:forum --content "..." --uri at://did:plc:abc/forum.barazo.reply/1`,
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author DID"},
				&cli.StringFlag{Name: "community", Aliases: []string{"c"}, Usage: "Community DID"},
				&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "topic or reply", Value: string(enum.ContentTypeReply)},
				&cli.StringFlag{Name: "title", Usage: "Topic title"},
				&cli.StringFlag{Name: "content", Usage: "Body text"},
				&cli.StringFlag{Name: "uri", Usage: "Content AT-URI; held submissions are queued when set"},
			},
			Action: handleCheck(deps),
		},
		{
			Name:  "write-rate",
			Usage: "Consume one unit of an author's per-minute write budget",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author DID"},
				&cli.StringFlag{Name: "community", Aliases: []string{"c"}, Usage: "Community DID"},
			},
			Action: handleWriteRate(deps),
		},
		{
			Name:  "settings",
			Usage: "Inspect and change per-community anti-spam settings",
			Commands: []*cli.Command{
				{
					Name:      "get",
					Usage:     "Show a community's effective settings",
					ArgsUsage: "COMMUNITY_DID",
					Action:    handleSettingsGet(deps),
				},
				{
					Name:      "set",
					Usage:     "Replace a community's overrides from a JSON file",
					ArgsUsage: "COMMUNITY_DID FILE",
					Action:    handleSettingsSet(deps),
				},
			},
		},
	}
}

func handleCheck(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		sub := antispam.Submission{
			AuthorDID:    c.String("author"),
			CommunityDID: c.String("community"),
			ContentType:  enum.ContentType(c.String("type")),
			Title:        c.String("title"),
			Content:      c.String("content"),
		}

		result, err := deps.App.Gate.Check(ctx, sub)
		if err != nil {
			return err
		}

		if uri := c.String("uri"); uri != "" {
			if err := deps.App.Gate.Enqueue(ctx, uri, sub, result); err != nil {
				return err
			}
		}

		return printJSON(result)
	}
}

func handleWriteRate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if err := deps.App.Gate.CheckWriteRate(ctx, c.String("author"), c.String("community")); err != nil {
			return err
		}
		return printJSON(map[string]bool{"allowed": true})
	}
}

func handleSettingsGet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		community, err := argDID(c)
		if err != nil {
			return err
		}
		return printJSON(deps.App.Settings.Load(ctx, community))
	}
}

func handleSettingsSet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("%w: COMMUNITY_DID and FILE arguments required", types.ErrInvalidInput)
		}

		data, err := os.ReadFile(c.Args().Get(1))
		if err != nil {
			return fmt.Errorf("failed to read overrides: %w", err)
		}

		var overrides types.AntiSpamOverrides
		if err := sonic.Unmarshal(data, &overrides); err != nil {
			return fmt.Errorf("%w: overrides file: %w", types.ErrInvalidInput, err)
		}

		settings, err := deps.App.Settings.Save(ctx, c.Args().First(), &overrides)
		if err != nil {
			return err
		}
		return printJSON(settings)
	}
}
