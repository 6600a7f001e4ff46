package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		statements := []string{
			// Global seeds are stored with a NULL community, so uniqueness needs the COALESCE
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_trust_seeds_did_scope
			ON trust_seeds (did, COALESCE(community_did, ''))`,

			`CREATE INDEX IF NOT EXISTS idx_moderation_queue_items_status_created
			ON moderation_queue_items (status, created_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_moderation_queue_items_content_pending
			ON moderation_queue_items (content_uri) WHERE status = 'pending'`,

			`CREATE INDEX IF NOT EXISTS idx_sybil_clusters_status_detected
			ON sybil_clusters (status, detected_at DESC)`,
			`CREATE INDEX IF NOT EXISTS idx_sybil_cluster_members_did
			ON sybil_cluster_members (did)`,

			`CREATE INDEX IF NOT EXISTS idx_behavioral_flags_status_detected
			ON behavioral_flags (status, detected_at DESC)`,

			`CREATE INDEX IF NOT EXISTS idx_reactions_created_author
			ON reactions (created_at, author_did)`,
			`CREATE INDEX IF NOT EXISTS idx_reactions_subject_author
			ON reactions (subject_author_did)`,
			`CREATE INDEX IF NOT EXISTS idx_topics_author ON topics (author_did)`,
			`CREATE INDEX IF NOT EXISTS idx_topics_created ON topics (created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_replies_author ON replies (author_did)`,
			`CREATE INDEX IF NOT EXISTS idx_replies_created ON replies (created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_interaction_edges_source_created
			ON interaction_edges (source_did, created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_accounts_role
			ON accounts (role) WHERE role <> 'user'`,
		}

		for _, stmt := range statements {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"idx_trust_seeds_did_scope",
			"idx_moderation_queue_items_status_created",
			"idx_moderation_queue_items_content_pending",
			"idx_sybil_clusters_status_detected",
			"idx_sybil_cluster_members_did",
			"idx_behavioral_flags_status_detected",
			"idx_reactions_created_author",
			"idx_reactions_subject_author",
			"idx_topics_author",
			"idx_topics_created",
			"idx_replies_author",
			"idx_replies_created",
			"idx_interaction_edges_source_created",
			"idx_accounts_role",
		}

		for _, name := range indexes {
			if _, err := db.ExecContext(ctx, "DROP INDEX IF EXISTS "+name); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", name, err)
			}
		}

		return nil
	})
}
