package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/barazo-forum/barazo-api-sub002/cmd/trustgate/commands"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup/telemetry"
	"github.com/urfave/cli/v3"
)

// CLILogDir specifies where CLI log files are stored.
const CLILogDir = "logs/cli_logs"

// Exit codes per error category.
const (
	exitFatal       = 1
	exitValidation  = 2
	exitNotFound    = 3
	exitConflict    = 4
	exitRateLimited = 5
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceCLI, CLILogDir, false)
	if err != nil {
		return err
	}
	defer app.Cleanup(context.Background())

	deps := &commands.CLIDependencies{App: app}

	cmd := &cli.Command{
		Name:  "trustgate",
		Usage: "Forum anti-abuse and trust administration",
		Commands: slices.Concat(
			commands.AntiSpamCommands(deps),
			commands.QueueCommands(deps),
			commands.TrustCommands(deps),
			commands.SybilCommands(deps),
			commands.HeuristicsCommands(deps),
			commands.ReputationCommands(deps),
			commands.WorkerCommands(deps),
		),
	}

	return cmd.Run(ctx, os.Args)
}

// exitCode maps an error onto the process exit status.
func exitCode(err error) int {
	switch types.Classify(err) {
	case types.ErrorKindValidation:
		return exitValidation
	case types.ErrorKindNotFound:
		return exitNotFound
	case types.ErrorKindConflict:
		return exitConflict
	case types.ErrorKindRateLimited:
		return exitRateLimited
	default:
		return exitFatal
	}
}
