// Package reputation derives the public reputation score of an account and
// answers whether the account may skip anti-spam checks.
package reputation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/trustgraph"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultPDSTrustFactor applies to hosts without a stored factor.
const DefaultPDSTrustFactor = 0.3

// Contribution weights of the base score.
const (
	topicWeight    = 5
	replyWeight    = 2
	reactionWeight = 1
)

// AccountStore reads account metadata and activity.
type AccountStore interface {
	GetAccount(ctx context.Context, did string) (*types.Account, error)
	GetActivityCounts(ctx context.Context, did string) (*types.ActivityCounts, error)
}

// TrustStore reads the trust ledger and seeds.
type TrustStore interface {
	GetAccountTrust(ctx context.Context, did, communityDID string) (*types.AccountTrust, error)
	IsSeed(ctx context.Context, did, communityDID string) (bool, error)
}

// PDSStore reads and writes hosting-service trust factors.
type PDSStore interface {
	ListFactors(ctx context.Context) ([]*types.PDSTrustFactor, error)
	GetFactor(ctx context.Context, host string) (*types.PDSTrustFactor, error)
	SaveFactor(ctx context.Context, factor *types.PDSTrustFactor) error
}

// ClusterStore reads flagged clusters.
type ClusterStore interface {
	GetFlaggedClustersForAccount(ctx context.Context, did string) ([]*types.SybilCluster, error)
}

// EdgeCounter splits an account's interactions into those within a member set and the rest.
type EdgeCounter interface {
	CountEdgesWithin(ctx context.Context, did string, members []string) (internal int, external int, err error)
}

// ScoreProvider returns raw trust scores.
type ScoreProvider interface {
	GetTrustScore(ctx context.Context, did string, scope types.Scope) (float64, error)
}

// Stores groups the storage the calculator reads.
type Stores struct {
	Accounts AccountStore
	Trust    TrustStore
	PDS      PDSStore
	Clusters ClusterStore
	Edges    EdgeCounter
}

// Reputation is an account's score with every factor that produced it.
type Reputation struct {
	DID                    string                `json:"did"`
	Reputation             int                   `json:"reputation"`
	Base                   int                   `json:"base"`
	Activity               *types.ActivityCounts `json:"activity"`
	TrustScore             float64               `json:"trustScore"`
	PDSHost                string                `json:"pdsHost,omitempty"`
	PDSTrustFactor         float64               `json:"pdsTrustFactor"`
	ClusterDiversityFactor float64               `json:"clusterDiversityFactor"`
}

// Calculator computes reputation scores.
type Calculator struct {
	stores Stores
	scores ScoreProvider
	logger *zap.Logger
	now    func() time.Time
}

// NewCalculator creates a Calculator.
func NewCalculator(stores Stores, scores ScoreProvider, logger *zap.Logger) *Calculator {
	return &Calculator{
		stores: stores,
		scores: scores,
		logger: logger.Named("reputation"),
		now:    time.Now,
	}
}

// Get computes round(base × trustScore × pdsTrustFactor × clusterDiversityFactor).
// Only the account lookup is required; every factor falls back to a default.
func (c *Calculator) Get(ctx context.Context, did string) (*Reputation, error) {
	ctx, span := otel.Tracer("trustgate/reputation").Start(ctx, "reputation.Get")
	defer span.End()

	if !utils.ValidDID(did) {
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidDID, did)
	}

	account, err := c.stores.Accounts.GetAccount(ctx, did)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrAccountNotFound, did)
	}

	rep := &Reputation{DID: did}
	rep.PDSHost, _ = utils.PDSHostFromHandle(account.Handle)

	// Every lookup falls back to a default so a degraded store lowers
	// precision instead of failing the read
	p := pool.New()
	p.Go(func() {
		rep.Activity = c.activity(ctx, did)
	})
	p.Go(func() {
		rep.TrustScore = c.trustScore(ctx, did)
	})
	p.Go(func() {
		rep.PDSTrustFactor = c.pdsFactor(ctx, rep.PDSHost)
	})
	p.Go(func() {
		rep.ClusterDiversityFactor = c.clusterFactor(ctx, did)
	})
	p.Wait()

	rep.Base = rep.Activity.Topics*topicWeight +
		rep.Activity.Replies*replyWeight +
		rep.Activity.ReactionsReceived*reactionWeight
	rep.Reputation = Score(rep.Base, rep.TrustScore, rep.PDSTrustFactor, rep.ClusterDiversityFactor)

	span.SetAttributes(
		attribute.Int("reputation.base", rep.Base),
		attribute.Int("reputation.score", rep.Reputation),
	)

	return rep, nil
}

// Score combines a base score with its multipliers.
func Score(base int, trustScore, pdsFactor, clusterFactor float64) int {
	return int(math.Round(float64(base) * trustScore * pdsFactor * clusterFactor))
}

// CanBypass reports whether the account skips anti-spam checks in the
// community: staff, trusted accounts and trust seeds do.
func (c *Calculator) CanBypass(ctx context.Context, did, communityDID string) (bool, error) {
	if !utils.ValidDID(did) {
		return false, fmt.Errorf("%w: %q", types.ErrInvalidDID, did)
	}
	if !utils.ValidDID(communityDID) {
		return false, fmt.Errorf("%w: community %q", types.ErrInvalidDID, communityDID)
	}

	account, err := c.stores.Accounts.GetAccount(ctx, did)
	if err != nil {
		return false, err
	}
	if account.IsStaff() {
		return true, nil
	}

	ledger, err := c.stores.Trust.GetAccountTrust(ctx, did, communityDID)
	if err != nil {
		return false, err
	}
	if ledger != nil && ledger.IsTrusted {
		return true, nil
	}

	return c.stores.Trust.IsSeed(ctx, did, communityDID)
}

// ListPDSFactors returns every stored hosting-service factor.
func (c *Calculator) ListPDSFactors(ctx context.Context) ([]*types.PDSTrustFactor, error) {
	return c.stores.PDS.ListFactors(ctx)
}

// UpdatePDSFactor stores the trust factor for a hosting service.
func (c *Calculator) UpdatePDSFactor(ctx context.Context, host string, factor float64) (*types.PDSTrustFactor, error) {
	normalized, ok := utils.NormalizeHost(host)
	if !ok {
		return nil, fmt.Errorf("%w: pds host %q", types.ErrInvalidInput, host)
	}
	if math.IsNaN(factor) || factor < 0 || factor > 1 {
		return nil, fmt.Errorf("%w: got %v", types.ErrInvalidTrustFactor, factor)
	}

	record := &types.PDSTrustFactor{
		PDSHost:     normalized,
		TrustFactor: factor,
		UpdatedAt:   c.now(),
	}
	if err := c.stores.PDS.SaveFactor(ctx, record); err != nil {
		return nil, err
	}

	c.logger.Info("PDS trust factor updated",
		zap.String("host", normalized),
		zap.Float64("factor", factor))

	return record, nil
}

func (c *Calculator) activity(ctx context.Context, did string) *types.ActivityCounts {
	counts, err := c.stores.Accounts.GetActivityCounts(ctx, did)
	if err != nil {
		c.logger.Warn("Failed to load activity counts, using zero",
			zap.String("did", did),
			zap.Error(err))
		return &types.ActivityCounts{}
	}
	if counts == nil {
		return &types.ActivityCounts{}
	}
	return counts
}

func (c *Calculator) trustScore(ctx context.Context, did string) float64 {
	score, err := c.scores.GetTrustScore(ctx, did, types.Global())
	if err != nil {
		c.logger.Warn("Failed to fetch trust score, using default",
			zap.String("did", did),
			zap.Float64("default", trustgraph.DefaultScore),
			zap.Error(err))
		return trustgraph.DefaultScore
	}
	return score
}

func (c *Calculator) pdsFactor(ctx context.Context, host string) float64 {
	if host == "" {
		return DefaultPDSTrustFactor
	}

	factor, err := c.stores.PDS.GetFactor(ctx, host)
	if err != nil {
		if !errors.Is(err, types.ErrPDSFactorNotFound) {
			c.logger.Warn("Failed to load PDS trust factor, using default",
				zap.String("host", host),
				zap.Error(err))
		}
		return DefaultPDSTrustFactor
	}

	return factor.TrustFactor
}

func (c *Calculator) clusterFactor(ctx context.Context, did string) float64 {
	factor, err := c.clusterDiversityFactor(ctx, did)
	if err != nil {
		c.logger.Warn("Failed to load cluster diversity factor, using 1",
			zap.String("did", did),
			zap.Error(err))
		return 1
	}
	return factor
}

// clusterDiversityFactor is 1 unless the account sits in a flagged cluster.
// For each such cluster the factor is the external share of the account's
// own edges, or 1 - suspicionRatio when it has none; the lowest value wins.
func (c *Calculator) clusterDiversityFactor(ctx context.Context, did string) (float64, error) {
	clusters, err := c.stores.Clusters.GetFlaggedClustersForAccount(ctx, did)
	if err != nil {
		return 0, err
	}

	factor := 1.0
	for _, cluster := range clusters {
		members := make([]string, 0, len(cluster.Members))
		for _, m := range cluster.Members {
			if m.DID != did {
				members = append(members, m.DID)
			}
		}

		internal, external, err := c.stores.Edges.CountEdgesWithin(ctx, did, members)
		if err != nil {
			return 0, err
		}

		clusterFactor := 1 - cluster.SuspicionRatio()
		if total := internal + external; total > 0 {
			clusterFactor = float64(external) / float64(total)
		}

		factor = min(factor, clusterFactor)
	}

	return factor, nil
}
