package commands

import (
	"context"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/urfave/cli/v3"
)

// QueueCommands returns the moderation queue commands.
func QueueCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "queue",
			Usage: "Review held content",
			Commands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List queue items, newest first",
					Flags: append([]cli.Flag{
						&cli.StringFlag{Name: "status", Usage: "pending, approved or rejected"},
						&cli.StringFlag{Name: "community", Aliases: []string{"c"}, Usage: "Community DID"},
						&cli.StringFlag{Name: "reason", Usage: "word_filter, first_post, link_hold, burst or topic_delay"},
					}, pageFlags()...),
					Action: handleQueueList(deps),
				},
				{
					Name:      "get",
					Usage:     "Show one queue item",
					ArgsUsage: "ID",
					Action:    handleQueueGet(deps),
				},
				{
					Name:      "approve",
					Usage:     "Approve held content and restore it",
					ArgsUsage: "ID",
					Flags:     []cli.Flag{reviewerFlag},
					Action:    handleQueueReview(deps, true),
				},
				{
					Name:      "reject",
					Usage:     "Reject held content",
					ArgsUsage: "ID",
					Flags:     []cli.Flag{reviewerFlag},
					Action:    handleQueueReview(deps, false),
				},
			},
		},
	}
}

func handleQueueList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		items, err := deps.App.Queue.List(ctx, types.QueueFilter{
			Status:       enum.QueueStatus(c.String("status")),
			CommunityDID: c.String("community"),
			Reason:       enum.QueueReason(c.String("reason")),
			Limit:        int(c.Int("limit")),
			Offset:       int(c.Int("offset")),
		})
		if err != nil {
			return err
		}
		return printJSON(items)
	}
}

func handleQueueGet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		id, err := argID(c)
		if err != nil {
			return err
		}

		item, err := deps.App.Queue.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(item)
	}
}

func handleQueueReview(deps *CLIDependencies, approve bool) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		id, err := argID(c)
		if err != nil {
			return err
		}
		reviewerDID, err := reviewer(c)
		if err != nil {
			return err
		}

		review := deps.App.Queue.Reject
		if approve {
			review = deps.App.Queue.Approve
		}

		resolution, err := review(ctx, id, reviewerDID)
		if err != nil {
			return err
		}
		return printJSON(resolution)
	}
}
