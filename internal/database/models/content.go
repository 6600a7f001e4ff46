package models

import (
	"context"
	"fmt"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/dbretry"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ContentModel handles reads over topics, replies, reactions and the
// interaction graph, and the moderation status of content rows.
type ContentModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewContent creates a ContentModel with database access.
func NewContent(db *bun.DB, logger *zap.Logger) *ContentModel {
	return &ContentModel{
		db:     db,
		logger: logger.Named("db_content"),
	}
}

// setModerationStatus updates the moderation status of a topic or reply.
func setModerationStatus(
	ctx context.Context, db bun.IDB, contentType enum.ContentType, uri string, status enum.ModerationStatus,
) error {
	var model any
	switch contentType {
	case enum.ContentTypeTopic:
		model = (*types.Topic)(nil)
	case enum.ContentTypeReply:
		model = (*types.Reply)(nil)
	default:
		return fmt.Errorf("%w: content type %q", types.ErrInvalidInput, contentType)
	}

	_, err := db.NewUpdate().
		Model(model).
		Set("moderation_status = ?", status).
		Where("uri = ?", uri).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set moderation status: %w (uri=%s)", err, uri)
	}

	return nil
}

// GetRecentContent returns approved topics and replies created since the given
// time, newest first, capped at limit items.
func (m *ContentModel) GetRecentContent(
	ctx context.Context, scope types.Scope, since time.Time, limit int,
) ([]*types.ContentItem, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ContentItem, error) {
		topics := m.db.NewSelect().
			Model((*types.Topic)(nil)).
			ColumnExpr("uri, author_did, title || ' ' || content AS content, created_at").
			Where("created_at >= ?", since).
			Where("moderation_status <> ?", enum.ModerationStatusRejected)
		replies := m.db.NewSelect().
			Model((*types.Reply)(nil)).
			ColumnExpr("uri, author_did, content, created_at").
			Where("created_at >= ?", since).
			Where("moderation_status <> ?", enum.ModerationStatusRejected)

		if !scope.IsGlobal() {
			topics = topics.Where("community_did = ?", scope.CommunityDID())
			replies = replies.Where("community_did = ?", scope.CommunityDID())
		}

		var items []*types.ContentItem
		err := m.db.NewSelect().
			TableExpr("(?) AS recent", topics.UnionAll(replies)).
			ColumnExpr("uri, author_did, content").
			OrderExpr("created_at DESC").
			Limit(limit).
			Scan(ctx, &items)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent content: %w", err)
		}

		return items, nil
	})
}

// GetReactionCounts returns authors with at least threshold reactions since the given time.
func (m *ContentModel) GetReactionCounts(
	ctx context.Context, scope types.Scope, since time.Time, threshold int,
) ([]*types.ReactionCount, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.ReactionCount, error) {
		query := m.db.NewSelect().
			Model((*types.Reaction)(nil)).
			ColumnExpr("author_did, count(*) AS count").
			Where("created_at >= ?", since).
			Group("author_did").
			Having("count(*) >= ?", threshold).
			OrderExpr("count DESC, author_did ASC")

		if !scope.IsGlobal() {
			query = query.Where("community_did = ?", scope.CommunityDID())
		}

		var counts []*types.ReactionCount
		if err := query.Scan(ctx, &counts); err != nil {
			return nil, fmt.Errorf("failed to count reactions: %w", err)
		}

		return counts, nil
	})
}

// GetLowDiversityInteractions returns accounts with at least minTotal outgoing
// interactions since the given time that reached at most maxTargets distinct targets.
func (m *ContentModel) GetLowDiversityInteractions(
	ctx context.Context, scope types.Scope, since time.Time, minTotal, maxTargets int,
) ([]*types.InteractionSummary, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.InteractionSummary, error) {
		query := m.db.NewSelect().
			Model((*types.InteractionEdge)(nil)).
			ColumnExpr("source_did, sum(weight) AS total, count(DISTINCT target_did) AS distinct_targets").
			Where("created_at >= ?", since).
			Where("source_did <> target_did").
			Group("source_did").
			Having("sum(weight) >= ?", minTotal).
			Having("count(DISTINCT target_did) <= ?", maxTargets).
			OrderExpr("total DESC, source_did ASC")

		if !scope.IsGlobal() {
			query = query.Where("community_did = ?", scope.CommunityDID())
		}

		var summaries []*types.InteractionSummary
		if err := query.Scan(ctx, &summaries); err != nil {
			return nil, fmt.Errorf("failed to summarise interactions: %w", err)
		}

		return summaries, nil
	})
}

// CountEdgesWithin counts an account's outgoing interactions, split by whether
// the target is one of the given members.
func (m *ContentModel) CountEdgesWithin(
	ctx context.Context, did string, members []string,
) (internal int, external int, err error) {
	type edgeCounts struct {
		Internal int `bun:"internal"`
		External int `bun:"external"`
	}

	if len(members) == 0 {
		members = []string{did}
	}

	counts, err := dbretry.Operation(ctx, func(ctx context.Context) (*edgeCounts, error) {
		var counts edgeCounts
		err := m.db.NewSelect().
			Model((*types.InteractionEdge)(nil)).
			ColumnExpr("COALESCE(sum(weight) FILTER (WHERE target_did IN (?)), 0) AS internal", bun.In(members)).
			ColumnExpr("COALESCE(sum(weight) FILTER (WHERE target_did NOT IN (?)), 0) AS external", bun.In(members)).
			Where("source_did = ?", did).
			Where("target_did <> source_did").
			Scan(ctx, &counts)
		if err != nil {
			return nil, fmt.Errorf("failed to count edges: %w (did=%s)", err, did)
		}
		return &counts, nil
	})
	if err != nil {
		return 0, 0, err
	}

	return counts.Internal, counts.External, nil
}
