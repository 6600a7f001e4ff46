// Package sybil manages review of detected sybil clusters.
package sybil

import (
	"context"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Store is the durable cluster storage.
type Store interface {
	ListClusters(ctx context.Context, opts types.ClusterListOptions) ([]*types.SybilCluster, error)
	GetCluster(ctx context.Context, id int64) (*types.SybilCluster, error)
	UpdateClusterStatus(ctx context.Context, id int64, from, to enum.ClusterStatus, reviewer string, at time.Time) error
	UpsertDetection(ctx context.Context, cluster *types.SybilCluster, members []*types.SybilClusterMember) error
}

// AccountBanner marks accounts as banned.
type AccountBanner interface {
	BanAccount(ctx context.Context, did string, at time.Time) error
}

// BanFailure records a member whose ban could not be applied.
type BanFailure struct {
	DID   string `json:"did"`
	Error string `json:"error"`
}

// StatusUpdate is the outcome of a cluster review.
type StatusUpdate struct {
	Cluster     *types.SybilCluster `json:"cluster"`
	BanFailures []BanFailure        `json:"banFailures,omitempty"`
}

// Detection is a cluster reported by the graph analysis.
type Detection struct {
	Members       []string
	Periphery     []string
	InternalEdges int
	ExternalEdges int
}

// Registry reviews sybil clusters.
type Registry struct {
	store    Store
	accounts AccountBanner
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistry creates a Registry.
func NewRegistry(store Store, accounts AccountBanner, logger *zap.Logger) *Registry {
	return &Registry{
		store:    store,
		accounts: accounts,
		logger:   logger.Named("sybil"),
		now:      time.Now,
	}
}

// List returns clusters matching the options. The default ordering is newest first.
func (r *Registry) List(ctx context.Context, opts types.ClusterListOptions) ([]*types.SybilCluster, error) {
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, fmt.Errorf("%w: cluster status %q", types.ErrInvalidStatus, opts.Status)
	}
	if opts.SortBy == "" {
		opts.SortBy = enum.ClusterSortByDetectedAt
		opts.Desc = true
	}
	if !opts.SortBy.Valid() {
		return nil, fmt.Errorf("%w: sort key %q", types.ErrInvalidInput, opts.SortBy)
	}
	if opts.Offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", types.ErrInvalidInput)
	}

	switch {
	case opts.Limit <= 0:
		opts.Limit = defaultPageSize
	case opts.Limit > maxPageSize:
		opts.Limit = maxPageSize
	}

	return r.store.ListClusters(ctx, opts)
}

// Get returns a cluster with its members.
func (r *Registry) Get(ctx context.Context, id int64) (*types.SybilCluster, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: cluster id %d", types.ErrInvalidInput, id)
	}
	return r.store.GetCluster(ctx, id)
}

// UpdateStatus records a review decision. The status change commits first;
// for a ban every member is then banned individually and failures are
// reported in the result instead of undoing the review.
func (r *Registry) UpdateStatus(
	ctx context.Context, id int64, status enum.ClusterStatus, reviewerDID string,
) (*StatusUpdate, error) {
	ctx, span := otel.Tracer("trustgate/sybil").Start(ctx, "sybil.UpdateStatus")
	defer span.End()

	if !utils.ValidDID(reviewerDID) {
		return nil, fmt.Errorf("%w: reviewer %q", types.ErrInvalidDID, reviewerDID)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: cluster status %q", types.ErrInvalidStatus, status)
	}

	cluster, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !cluster.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: cluster %d cannot move from %s to %s",
			types.ErrInvalidStatus, id, cluster.Status, status)
	}

	now := r.now()
	if err := r.store.UpdateClusterStatus(ctx, id, cluster.Status, status, reviewerDID, now); err != nil {
		return nil, err
	}

	previous := cluster.Status
	cluster.Status = status
	cluster.ReviewedBy = reviewerDID
	cluster.ReviewedAt = now
	cluster.UpdatedAt = now

	update := &StatusUpdate{Cluster: cluster}
	if status == enum.ClusterStatusBanned {
		update.BanFailures = r.banMembers(ctx, cluster, now)
	}

	reviewsTotal.WithLabelValues(string(status)).Inc()
	span.SetAttributes(
		attribute.Int64("sybil.cluster_id", id),
		attribute.String("sybil.status", string(status)),
		attribute.Int("sybil.ban_failures", len(update.BanFailures)),
	)

	r.logger.Info("Sybil cluster reviewed",
		zap.Int64("id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.String("reviewer", reviewerDID),
		zap.Int("members", len(cluster.Members)),
		zap.Int("banFailures", len(update.BanFailures)))

	return update, nil
}

// banMembers bans every member and collects the ones that failed.
func (r *Registry) banMembers(ctx context.Context, cluster *types.SybilCluster, at time.Time) []BanFailure {
	var failures []BanFailure
	for _, member := range cluster.Members {
		if err := r.accounts.BanAccount(ctx, member.DID, at); err != nil {
			memberBanFailures.Inc()
			r.logger.Error("Failed to ban cluster member",
				zap.Error(err),
				zap.Int64("clusterID", cluster.ID),
				zap.String("did", member.DID))
			failures = append(failures, BanFailure{DID: member.DID, Error: err.Error()})
		}
	}
	return failures
}

// RecordDetection stores a detected cluster. Reporting the same member set
// again refreshes its edge counts and keeps any review decision.
func (r *Registry) RecordDetection(ctx context.Context, detection Detection) (*types.SybilCluster, error) {
	core := uniqueSorted(detection.Members)
	periphery := slices.DeleteFunc(uniqueSorted(detection.Periphery), func(did string) bool {
		_, found := slices.BinarySearch(core, did)
		return found
	})

	if len(core)+len(periphery) < 2 {
		return nil, fmt.Errorf("%w: a cluster needs at least two members", types.ErrInvalidInput)
	}
	if detection.InternalEdges < 0 || detection.ExternalEdges < 0 {
		return nil, fmt.Errorf("%w: negative edge count", types.ErrInvalidInput)
	}

	members := make([]*types.SybilClusterMember, 0, len(core)+len(periphery))
	for _, did := range core {
		if !utils.ValidDID(did) {
			return nil, fmt.Errorf("%w: member %q", types.ErrInvalidDID, did)
		}
		members = append(members, &types.SybilClusterMember{DID: did, RoleInCluster: enum.ClusterMemberRoleCore})
	}
	for _, did := range periphery {
		if !utils.ValidDID(did) {
			return nil, fmt.Errorf("%w: member %q", types.ErrInvalidDID, did)
		}
		members = append(members, &types.SybilClusterMember{DID: did, RoleInCluster: enum.ClusterMemberRolePeriphery})
	}

	now := r.now()
	cluster := &types.SybilCluster{
		ClusterHash:       ClusterHash(append(slices.Clone(core), periphery...)),
		InternalEdgeCount: detection.InternalEdges,
		ExternalEdgeCount: detection.ExternalEdges,
		MemberCount:       len(members),
		Status:            enum.ClusterStatusFlagged,
		DetectedAt:        now,
		UpdatedAt:         now,
	}

	if err := r.store.UpsertDetection(ctx, cluster, members); err != nil {
		return nil, err
	}

	r.logger.Info("Sybil cluster recorded",
		zap.Int64("id", cluster.ID),
		zap.String("hash", cluster.ClusterHash),
		zap.String("status", string(cluster.Status)),
		zap.Int("members", cluster.MemberCount),
		zap.Float64("suspicionRatio", cluster.SuspicionRatio()))

	return cluster, nil
}

// ClusterHash identifies a member set independent of member order.
func ClusterHash(dids []string) string {
	sum := blake2b.Sum256([]byte(strings.Join(uniqueSorted(dids), "\n")))
	return hex.EncodeToString(sum[:])
}

func uniqueSorted(dids []string) []string {
	out := slices.Clone(dids)
	slices.Sort(out)
	return slices.Compact(out)
}
