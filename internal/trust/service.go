// Package trust exposes the per-community trust ledger and the seed set fed
// to the trust-graph provider.
package trust

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/internal/trustgraph"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// maxReasonLength bounds the free-text reason attached to a seed.
const maxReasonLength = 500

// implicitSeedAddedBy marks seeds derived from account roles.
const implicitSeedAddedBy = "system"

// Store is the durable trust ledger and seed storage.
type Store interface {
	GetAccountTrust(ctx context.Context, did, communityDID string) (*types.AccountTrust, error)
	CountTrusted(ctx context.Context) (int, error)
	ListSeeds(ctx context.Context, scope *types.Scope) ([]*types.TrustSeed, error)
	CreateSeed(ctx context.Context, seed *types.TrustSeed) error
	DeleteSeed(ctx context.Context, id int64) error
	IsSeed(ctx context.Context, did, communityDID string) (bool, error)
	CountSeeds(ctx context.Context) (int, error)
}

// AccountStore reads account roles.
type AccountStore interface {
	GetAccount(ctx context.Context, did string) (*types.Account, error)
	ListStaff(ctx context.Context) ([]*types.Account, error)
}

// PendingCounter counts items awaiting review.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// ClusterCounter counts sybil clusters per status.
type ClusterCounter interface {
	CountByStatus(ctx context.Context, status enum.ClusterStatus) (int, error)
}

// ScoreProvider returns raw trust scores.
type ScoreProvider interface {
	GetTrustScore(ctx context.Context, did string, scope types.Scope) (float64, error)
}

// Recomputer dispatches trust score recomputes.
type Recomputer interface {
	Trigger(ctx context.Context, scope types.Scope) (bool, error)
	Status(ctx context.Context, scope types.Scope) (*trustgraph.RecomputeStatus, error)
}

// Stores groups the storage the service reads.
type Stores struct {
	Trust    Store
	Accounts AccountStore
	Queue    PendingCounter
	Flags    PendingCounter
	Clusters ClusterCounter
}

// Status is an account's trust standing within a community.
type Status struct {
	DID               string    `json:"did"`
	CommunityDID      string    `json:"communityDid"`
	ApprovedPostCount int       `json:"approvedPostCount"`
	IsTrusted         bool      `json:"isTrusted"`
	TrustedAt         time.Time `json:"trustedAt,omitzero"`
	IsStaff           bool      `json:"isStaff"`
	IsSeed            bool      `json:"isSeed"`
	TrustScore        float64   `json:"trustScore"`
}

// Metrics summarises the trust system for administrators.
type Metrics struct {
	TrustedAccounts   int `json:"trustedAccounts"`
	ExplicitSeeds     int `json:"explicitSeeds"`
	ImplicitSeeds     int `json:"implicitSeeds"`
	PendingQueueItems int `json:"pendingQueueItems"`
	FlaggedClusters   int `json:"flaggedClusters"`
	PendingFlags      int `json:"pendingFlags"`
}

// Service answers trust status queries and administers seeds.
type Service struct {
	stores     Stores
	scores     ScoreProvider
	recomputer Recomputer
	logger     *zap.Logger
}

// NewService creates a Service.
func NewService(stores Stores, scores ScoreProvider, recomputer Recomputer, logger *zap.Logger) *Service {
	return &Service{
		stores:     stores,
		scores:     scores,
		recomputer: recomputer,
		logger:     logger.Named("trust"),
	}
}

// Status returns the account's trust standing in a community. A provider
// failure yields the default trust score.
func (s *Service) Status(ctx context.Context, did, communityDID string) (*Status, error) {
	if !utils.ValidDID(did) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidDID, did)
	}
	if !utils.ValidDID(communityDID) {
		return nil, fmt.Errorf("%w: community %q", types.ErrInvalidDID, communityDID)
	}

	account, err := s.stores.Accounts.GetAccount(ctx, did)
	if err != nil {
		return nil, err
	}

	ledger, err := s.stores.Trust.GetAccountTrust(ctx, did, communityDID)
	if err != nil {
		return nil, err
	}

	explicit, err := s.stores.Trust.IsSeed(ctx, did, communityDID)
	if err != nil {
		return nil, err
	}

	status := &Status{
		DID:          did,
		CommunityDID: communityDID,
		IsStaff:      account.IsStaff(),
		IsSeed:       explicit || account.IsStaff(),
		TrustScore:   s.trustScore(ctx, did, types.Community(communityDID)),
	}
	if ledger != nil {
		status.ApprovedPostCount = ledger.ApprovedPostCount
		status.IsTrusted = ledger.IsTrusted
		status.TrustedAt = ledger.TrustedAt
	}

	return status, nil
}

// ListSeeds returns explicit seeds merged with the implicit seeds of staff
// accounts. A nil scope lists everything; staff seeds are global and appear in
// unscoped and global listings only. An explicit seed shadows the implicit one
// for the same account.
func (s *Service) ListSeeds(ctx context.Context, scope *types.Scope) ([]*types.TrustSeed, error) {
	explicit, err := s.stores.Trust.ListSeeds(ctx, scope)
	if err != nil {
		return nil, err
	}

	if scope != nil && !scope.IsGlobal() {
		return explicit, nil
	}

	staff, err := s.stores.Accounts.ListStaff(ctx)
	if err != nil {
		return nil, err
	}

	globalSeeds := make(map[string]struct{}, len(explicit))
	for _, seed := range explicit {
		if seed.CommunityDID.IsGlobal() {
			globalSeeds[seed.DID] = struct{}{}
		}
	}

	seeds := slices.Clone(explicit)
	for _, account := range staff {
		if _, ok := globalSeeds[account.DID]; ok {
			continue
		}
		seeds = append(seeds, &types.TrustSeed{
			DID:          account.DID,
			CommunityDID: types.Global(),
			AddedBy:      implicitSeedAddedBy,
			Reason:       "staff role: " + string(account.Role),
			Implicit:     true,
			CreatedAt:    account.FirstSeenAt,
		})
	}

	return seeds, nil
}

// CreateSeed adds an explicit seed.
func (s *Service) CreateSeed(
	ctx context.Context, did string, scope types.Scope, addedBy, reason string,
) (*types.TrustSeed, error) {
	if !utils.ValidDID(did) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidDID, did)
	}
	if !utils.ValidDID(addedBy) {
		return nil, fmt.Errorf("%w: added by %q", types.ErrInvalidDID, addedBy)
	}

	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLength {
		return nil, fmt.Errorf("%w: reason longer than %d characters", types.ErrInvalidInput, maxReasonLength)
	}

	seed := &types.TrustSeed{
		DID:          did,
		CommunityDID: scope,
		AddedBy:      addedBy,
		Reason:       reason,
		CreatedAt:    time.Now(),
	}
	if err := s.stores.Trust.CreateSeed(ctx, seed); err != nil {
		return nil, err
	}

	s.logger.Info("Trust seed created",
		zap.String("did", did),
		zap.String("scope", scope.Key()),
		zap.String("addedBy", addedBy))

	return seed, nil
}

// DeleteSeed removes an explicit seed. Implicit seeds cannot be deleted.
func (s *Service) DeleteSeed(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: seed id %d", types.ErrInvalidInput, id)
	}

	if err := s.stores.Trust.DeleteSeed(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Trust seed deleted", zap.Int64("id", id))
	return nil
}

// TriggerRecompute requests a fire-and-forget trust score recompute.
func (s *Service) TriggerRecompute(ctx context.Context, scope types.Scope) (bool, error) {
	return s.recomputer.Trigger(ctx, scope)
}

// RecomputeStatus returns the last recompute outcome for a scope.
func (s *Service) RecomputeStatus(ctx context.Context, scope types.Scope) (*trustgraph.RecomputeStatus, error) {
	return s.recomputer.Status(ctx, scope)
}

// Metrics gathers the admin counters concurrently.
func (s *Service) Metrics(ctx context.Context) (*Metrics, error) {
	var (
		m Metrics
		p = pool.New().WithContext(ctx).WithCancelOnError()
	)

	count := func(dst *int, fn func(ctx context.Context) (int, error)) {
		p.Go(func(ctx context.Context) error {
			n, err := fn(ctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	count(&m.TrustedAccounts, s.stores.Trust.CountTrusted)
	count(&m.ExplicitSeeds, s.stores.Trust.CountSeeds)
	count(&m.PendingQueueItems, s.stores.Queue.CountPending)
	count(&m.PendingFlags, s.stores.Flags.CountPending)
	count(&m.FlaggedClusters, func(ctx context.Context) (int, error) {
		return s.stores.Clusters.CountByStatus(ctx, enum.ClusterStatusFlagged)
	})
	count(&m.ImplicitSeeds, func(ctx context.Context) (int, error) {
		staff, err := s.stores.Accounts.ListStaff(ctx)
		return len(staff), err
	})

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("failed to gather trust metrics: %w", err)
	}

	return &m, nil
}

func (s *Service) trustScore(ctx context.Context, did string, scope types.Scope) float64 {
	score, err := s.scores.GetTrustScore(ctx, did, scope)
	if err != nil {
		s.logger.Warn("Failed to fetch trust score, using default",
			zap.String("did", did),
			zap.Float64("default", trustgraph.DefaultScore),
			zap.Error(err))
		return trustgraph.DefaultScore
	}
	return score
}
