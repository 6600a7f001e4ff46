package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/internal/sybil"
	"github.com/urfave/cli/v3"
)

// SybilCommands returns the cluster review and PDS trust factor commands.
func SybilCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "clusters",
			Usage: "Review sybil clusters",
			Commands: []*cli.Command{
				{
					Name:  "list",
					Usage: "List clusters",
					Flags: append([]cli.Flag{
						&cli.StringFlag{Name: "status", Usage: "flagged, dismissed, monitoring or banned"},
						&cli.StringFlag{Name: "sort", Usage: "detected_at, member_count or suspicion_ratio"},
						&cli.BoolFlag{Name: "asc", Usage: "Sort ascending"},
					}, pageFlags()...),
					Action: handleClustersList(deps),
				},
				{
					Name:      "get",
					Usage:     "Show a cluster with its members",
					ArgsUsage: "ID",
					Action:    handleClustersGet(deps),
				},
				{
					Name:      "status",
					Usage:     "Record a review decision; banned bans every member",
					ArgsUsage: "ID STATUS",
					Flags:     []cli.Flag{reviewerFlag},
					Action:    handleClustersStatus(deps),
				},
				{
					Name:  "record",
					Usage: "Record a cluster detected by graph analysis",
					Flags: []cli.Flag{
						&cli.StringSliceFlag{Name: "member", Aliases: []string{"m"}, Usage: "Core member DID (repeatable)"},
						&cli.StringSliceFlag{Name: "periphery", Aliases: []string{"p"}, Usage: "Periphery member DID (repeatable)"},
						&cli.IntFlag{Name: "internal-edges", Usage: "Interactions between members"},
						&cli.IntFlag{Name: "external-edges", Usage: "Interactions with non-members"},
					},
					Action: handleClustersRecord(deps),
				},
			},
		},
		{
			Name:  "pds",
			Usage: "Manage PDS host trust factors",
			Commands: []*cli.Command{
				{
					Name:   "list",
					Usage:  "List stored trust factors",
					Action: handlePDSList(deps),
				},
				{
					Name:      "set",
					Usage:     "Set a host's trust factor between 0 and 1",
					ArgsUsage: "HOST FACTOR",
					Action:    handlePDSSet(deps),
				},
			},
		},
	}
}

func handleClustersList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		clusters, err := deps.App.Sybil.List(ctx, types.ClusterListOptions{
			Status: enum.ClusterStatus(c.String("status")),
			SortBy: enum.ClusterSortBy(c.String("sort")),
			Desc:   !c.Bool("asc"),
			Limit:  int(c.Int("limit")),
			Offset: int(c.Int("offset")),
		})
		if err != nil {
			return err
		}
		return printJSON(clusters)
	}
}

func handleClustersGet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		id, err := argID(c)
		if err != nil {
			return err
		}

		cluster, err := deps.App.Sybil.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cluster)
	}
}

func handleClustersStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("%w: ID and STATUS arguments required", types.ErrInvalidInput)
		}
		id, err := argID(c)
		if err != nil {
			return err
		}
		reviewerDID, err := reviewer(c)
		if err != nil {
			return err
		}

		update, err := deps.App.Sybil.UpdateStatus(ctx, id, enum.ClusterStatus(c.Args().Get(1)), reviewerDID)
		if err != nil {
			return err
		}
		return printJSON(update)
	}
}

func handleClustersRecord(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		cluster, err := deps.App.Sybil.RecordDetection(ctx, sybil.Detection{
			Members:       c.StringSlice("member"),
			Periphery:     c.StringSlice("periphery"),
			InternalEdges: int(c.Int("internal-edges")),
			ExternalEdges: int(c.Int("external-edges")),
		})
		if err != nil {
			return err
		}
		return printJSON(cluster)
	}
}

func handlePDSList(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		factors, err := deps.App.Reputation.ListPDSFactors(ctx)
		if err != nil {
			return err
		}
		return printJSON(factors)
	}
}

func handlePDSSet(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 2 {
			return fmt.Errorf("%w: HOST and FACTOR arguments required", types.ErrInvalidInput)
		}

		factor, err := strconv.ParseFloat(c.Args().Get(1), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", types.ErrInvalidTrustFactor, c.Args().Get(1))
		}

		saved, err := deps.App.Reputation.UpdatePDSFactor(ctx, c.Args().First(), factor)
		if err != nil {
			return err
		}
		return printJSON(saved)
	}
}
