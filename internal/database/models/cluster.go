package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/dbretry"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// suspicionRatioExpr derives the suspicion ratio in SQL so it is never stored.
const suspicionRatioExpr = "CASE WHEN internal_edge_count + external_edge_count = 0 THEN 0 " +
	"ELSE internal_edge_count::float8 / (internal_edge_count + external_edge_count) END"

// ClusterModel handles database operations for sybil clusters and their members.
type ClusterModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCluster creates a ClusterModel with database access.
func NewCluster(db *bun.DB, logger *zap.Logger) *ClusterModel {
	return &ClusterModel{
		db:     db,
		logger: logger.Named("db_cluster"),
	}
}

// ListClusters returns clusters matching the options without their members.
func (m *ClusterModel) ListClusters(ctx context.Context, opts types.ClusterListOptions) ([]*types.SybilCluster, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.SybilCluster, error) {
		var clusters []*types.SybilCluster
		query := m.db.NewSelect().Model(&clusters)

		if opts.Status != "" {
			query = query.Where("status = ?", opts.Status)
		}

		direction := "ASC"
		if opts.Desc {
			direction = "DESC"
		}

		switch opts.SortBy {
		case enum.ClusterSortByMemberCount:
			query = query.OrderExpr("member_count " + direction)
		case enum.ClusterSortBySuspicionRatio:
			query = query.OrderExpr("(" + suspicionRatioExpr + ") " + direction)
		default:
			query = query.OrderExpr("detected_at " + direction)
		}
		query = query.OrderExpr("id " + direction)

		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Offset(opts.Offset)
		}

		if err := query.Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list sybil clusters: %w", err)
		}

		return clusters, nil
	})
}

// GetCluster retrieves a cluster with its members.
func (m *ClusterModel) GetCluster(ctx context.Context, id int64) (*types.SybilCluster, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.SybilCluster, error) {
		var cluster types.SybilCluster
		err := m.db.NewSelect().
			Model(&cluster).
			Relation("Members", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Order("did ASC")
			}).
			Where("sybil_cluster.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: id %d", types.ErrClusterNotFound, id)
			}
			return nil, fmt.Errorf("failed to get sybil cluster: %w (id=%d)", err, id)
		}

		return &cluster, nil
	})
}

// UpdateClusterStatus records a review decision. The update only applies while
// the cluster still has the expected status.
func (m *ClusterModel) UpdateClusterStatus(
	ctx context.Context, id int64, from, to enum.ClusterStatus, reviewer string, at time.Time,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewUpdate().
			Model((*types.SybilCluster)(nil)).
			Set("status = ?", to).
			Set("reviewed_by = ?", reviewer).
			Set("reviewed_at = ?", at).
			Set("updated_at = ?", at).
			Where("id = ?", id).
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update sybil cluster status: %w (id=%d)", err, id)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: cluster %d is no longer %s", types.ErrConflict, id, from)
		}

		return nil
	})
}

// GetFlaggedClustersForAccount returns flagged clusters the account belongs to, with members.
func (m *ClusterModel) GetFlaggedClustersForAccount(ctx context.Context, did string) ([]*types.SybilCluster, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.SybilCluster, error) {
		var clusters []*types.SybilCluster
		err := m.db.NewSelect().
			Model(&clusters).
			Relation("Members").
			Where("sybil_cluster.status = ?", enum.ClusterStatusFlagged).
			Where("sybil_cluster.id IN (?)", m.db.NewSelect().
				Model((*types.SybilClusterMember)(nil)).
				Column("cluster_id").
				Where("did = ?", did)).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get clusters for account: %w (did=%s)", err, did)
		}

		return clusters, nil
	})
}

// CountByStatus returns the number of clusters in a status.
func (m *ClusterModel) CountByStatus(ctx context.Context, status enum.ClusterStatus) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := m.db.NewSelect().
			Model((*types.SybilCluster)(nil)).
			Where("status = ?", status).
			Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count sybil clusters: %w", err)
		}
		return count, nil
	})
}

// UpsertDetection stores a detected cluster keyed by its hash and replaces its
// member list. An existing cluster keeps its review status.
func (m *ClusterModel) UpsertDetection(
	ctx context.Context, cluster *types.SybilCluster, members []*types.SybilClusterMember,
) error {
	return dbretry.Transaction(ctx, m.db, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(cluster).
			On("CONFLICT (cluster_hash) DO UPDATE").
			Set("internal_edge_count = EXCLUDED.internal_edge_count").
			Set("external_edge_count = EXCLUDED.external_edge_count").
			Set("member_count = EXCLUDED.member_count").
			Set("updated_at = EXCLUDED.updated_at").
			Returning("*").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert sybil cluster: %w (hash=%s)", err, cluster.ClusterHash)
		}

		_, err = tx.NewDelete().
			Model((*types.SybilClusterMember)(nil)).
			Where("cluster_id = ?", cluster.ID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear cluster members: %w (id=%d)", err, cluster.ID)
		}

		if len(members) == 0 {
			return nil
		}

		for _, member := range members {
			member.ClusterID = cluster.ID
		}

		_, err = tx.NewInsert().
			Model(&members).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert cluster members: %w (id=%d)", err, cluster.ID)
		}

		cluster.Members = members
		return nil
	})
}
