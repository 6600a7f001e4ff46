package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup"
	"github.com/bytedance/sonic"
	"github.com/urfave/cli/v3"
)

var (
	ErrIDRequired       = fmt.Errorf("%w: ID argument required", types.ErrInvalidInput)
	ErrDIDRequired      = fmt.Errorf("%w: DID argument required", types.ErrInvalidInput)
	ErrReviewerRequired = fmt.Errorf("%w: --reviewer is required", types.ErrInvalidInput)
	ErrRecomputeTimeout = errors.New("timed out waiting for recompute")
)

// CLIDependencies holds the common dependencies needed by CLI commands.
type CLIDependencies struct {
	App *setup.App
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}

	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

// argID parses the first positional argument as a positive row ID.
func argID(c *cli.Command) (int64, error) {
	if c.Args().Len() < 1 {
		return 0, ErrIDRequired
	}

	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", types.ErrInvalidInput, c.Args().First())
	}
	return id, nil
}

// argDID returns the first positional argument, which must be present.
func argDID(c *cli.Command) (string, error) {
	if c.Args().Len() < 1 {
		return "", ErrDIDRequired
	}
	return c.Args().First(), nil
}

// reviewer returns the --reviewer flag, which must be present.
func reviewer(c *cli.Command) (string, error) {
	did := c.String("reviewer")
	if did == "" {
		return "", ErrReviewerRequired
	}
	return did, nil
}

// pageFlags are shared by every listing command.
func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "Maximum rows to return (capped at 200)",
			Value:   50,
		},
		&cli.IntFlag{
			Name:  "offset",
			Usage: "Rows to skip",
		},
	}
}

var reviewerFlag = &cli.StringFlag{
	Name:    "reviewer",
	Aliases: []string{"r"},
	Usage:   "DID of the moderator making the decision",
}
