package commands

import (
	"context"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// MigrationCommands returns all migration-related commands.
func MigrationCommands(deps *CLIDependencies) []*cli.Command {
	return []*cli.Command{
		{
			Name:   "init",
			Usage:  "Create the migration bookkeeping tables",
			Action: handleInit(deps),
		},
		{
			Name:   "migrate",
			Usage:  "Apply pending trust and moderation schema migrations",
			Action: handleMigrate(deps),
		},
		{
			Name:   "rollback",
			Usage:  "Roll back the last applied migration group",
			Action: handleRollback(deps),
		},
		{
			Name:   "status",
			Usage:  "List applied and pending migrations",
			Action: handleStatus(deps),
		},
		{
			Name:      "create",
			Usage:     "Create a new Go migration file",
			ArgsUsage: "NAME",
			Action:    handleCreate(deps),
		},
	}
}

func handleInit(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}

		deps.Logger.Info("Migration tables ready")
		return nil
	}
}

func handleMigrate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Init(ctx); err != nil {
			return err
		}

		if err := deps.Migrator.Lock(ctx); err != nil {
			return err
		}
		defer unlock(ctx, deps)

		group, err := deps.Migrator.Migrate(ctx)
		if err != nil {
			return err
		}

		if group.IsZero() {
			deps.Logger.Info("Schema is up to date")
			return nil
		}

		deps.Logger.Info("Applied migrations",
			zap.Int64("group", group.ID),
			zap.Int("count", len(group.Migrations)),
			zap.String("migrations", group.Migrations.String()))

		return nil
	}
}

func handleRollback(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		if err := deps.Migrator.Lock(ctx); err != nil {
			return err
		}
		defer unlock(ctx, deps)

		group, err := deps.Migrator.Rollback(ctx)
		if err != nil {
			return err
		}

		if group.IsZero() {
			deps.Logger.Info("Nothing to roll back")
			return nil
		}

		deps.Logger.Info("Rolled back migrations",
			zap.Int64("group", group.ID),
			zap.String("migrations", group.Migrations.String()))

		return nil
	}
}

func handleStatus(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, _ *cli.Command) error {
		ms, err := deps.Migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}

		unapplied := ms.Unapplied()
		deps.Logger.Info("Migration status",
			zap.Int("total", len(ms)),
			zap.Int("pending", len(unapplied)),
			zap.String("pendingNames", unapplied.String()),
			zap.String("lastGroup", ms.LastGroup().String()))

		return nil
	}
}

func handleCreate(deps *CLIDependencies) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() != 1 {
			return ErrNameRequired
		}

		mf, err := deps.Migrator.CreateGoMigration(ctx, c.Args().First())
		if err != nil {
			return err
		}

		deps.Logger.Info("Created Go migration",
			zap.String("name", mf.Name),
			zap.String("path", mf.Path))

		return nil
	}
}

func unlock(ctx context.Context, deps *CLIDependencies) {
	if err := deps.Migrator.Unlock(ctx); err != nil {
		deps.Logger.Error("Failed to release migration lock", zap.Error(err))
	}
}
