package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			INSERT INTO pds_trust_factors (pds_host, trust_factor, is_default, updated_at)
			VALUES ('bsky.social', 1.0, true, now()), ('bsky.network', 1.0, true, now())
			ON CONFLICT (pds_host) DO NOTHING
		`)
		if err != nil {
			return fmt.Errorf("failed to seed default pds trust factors: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `DELETE FROM pds_trust_factors WHERE is_default`)
		if err != nil {
			return fmt.Errorf("failed to remove default pds trust factors: %w", err)
		}
		return nil
	})
}
