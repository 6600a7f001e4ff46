package migrations

import (
	"context"
	"fmt"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		// Read models populated by the ingester
		models := []any{
			(*types.Account)(nil),
			(*types.Topic)(nil),
			(*types.Reply)(nil),
			(*types.Reaction)(nil),
			(*types.InteractionEdge)(nil),
		}

		// Tables owned by the trust layer
		models = append(models,
			(*types.TrustSeed)(nil),
			(*types.AccountTrust)(nil),
			(*types.ModerationQueueItem)(nil),
			(*types.SybilCluster)(nil),
			(*types.SybilClusterMember)(nil),
			(*types.PDSTrustFactor)(nil),
			(*types.BehavioralFlag)(nil),
			(*types.CommunitySetting)(nil),
		)

		for _, model := range models {
			_, err := db.NewCreateTable().
				Model(model).
				IfNotExists().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to create table %T: %w", model, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.CommunitySetting)(nil),
			(*types.BehavioralFlag)(nil),
			(*types.PDSTrustFactor)(nil),
			(*types.SybilClusterMember)(nil),
			(*types.SybilCluster)(nil),
			(*types.ModerationQueueItem)(nil),
			(*types.AccountTrust)(nil),
			(*types.TrustSeed)(nil),
			(*types.InteractionEdge)(nil),
			(*types.Reaction)(nil),
			(*types.Reply)(nil),
			(*types.Topic)(nil),
			(*types.Account)(nil),
		}

		for _, model := range models {
			_, err := db.NewDropTable().
				Model(model).
				IfExists().
				Cascade().
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to drop table %T: %w", model, err)
			}
		}

		return nil
	})
}
