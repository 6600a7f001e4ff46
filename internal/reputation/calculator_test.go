package reputation_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/internal/reputation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	communityDID = "did:plc:community0000000000000"
	aliceDID     = "did:plc:alice000000000000000000"
	bobDID       = "did:plc:bob00000000000000000000"
	carolDID     = "did:plc:carol000000000000000000"
)

var errUnavailable = errors.New("unavailable")

type fakeAccounts struct {
	accounts map[string]*types.Account
	activity map[string]*types.ActivityCounts
	err      error
}

func (f *fakeAccounts) GetAccount(_ context.Context, did string) (*types.Account, error) {
	return f.accounts[did], nil
}

func (f *fakeAccounts) GetActivityCounts(_ context.Context, did string) (*types.ActivityCounts, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.activity[did], nil
}

type fakeTrust struct {
	trusted map[string]bool
	seeds   map[string]bool
}

func (f *fakeTrust) GetAccountTrust(_ context.Context, did, communityDID string) (*types.AccountTrust, error) {
	if !f.trusted[did] {
		return nil, nil
	}
	return &types.AccountTrust{DID: did, CommunityDID: communityDID, IsTrusted: true}, nil
}

func (f *fakeTrust) IsSeed(_ context.Context, did, _ string) (bool, error) {
	return f.seeds[did], nil
}

type fakePDS struct {
	factors map[string]*types.PDSTrustFactor
	err     error
}

func (f *fakePDS) ListFactors(context.Context) ([]*types.PDSTrustFactor, error) {
	out := make([]*types.PDSTrustFactor, 0, len(f.factors))
	for _, factor := range f.factors {
		out = append(out, factor)
	}
	return out, nil
}

func (f *fakePDS) GetFactor(_ context.Context, host string) (*types.PDSTrustFactor, error) {
	if f.err != nil {
		return nil, f.err
	}
	factor, ok := f.factors[host]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrPDSFactorNotFound, host)
	}
	return factor, nil
}

func (f *fakePDS) SaveFactor(_ context.Context, factor *types.PDSTrustFactor) error {
	f.factors[factor.PDSHost] = factor
	return nil
}

type fakeClusters struct {
	clusters []*types.SybilCluster
	err      error
}

func (f *fakeClusters) GetFlaggedClustersForAccount(context.Context, string) ([]*types.SybilCluster, error) {
	return f.clusters, f.err
}

type fakeEdges struct {
	internal, external int
	lastMembers        []string
}

func (f *fakeEdges) CountEdgesWithin(_ context.Context, _ string, members []string) (int, int, error) {
	f.lastMembers = members
	return f.internal, f.external, nil
}

type fakeScores struct {
	score float64
	err   error
}

func (f *fakeScores) GetTrustScore(context.Context, string, types.Scope) (float64, error) {
	return f.score, f.err
}

type fixture struct {
	accounts *fakeAccounts
	trust    *fakeTrust
	pds      *fakePDS
	clusters *fakeClusters
	edges    *fakeEdges
	scores   *fakeScores
}

func newFixture() *fixture {
	return &fixture{
		accounts: &fakeAccounts{
			accounts: map[string]*types.Account{
				aliceDID: {DID: aliceDID, Handle: "alice.bsky.social", Role: enum.AccountRoleUser},
			},
			activity: map[string]*types.ActivityCounts{
				aliceDID: {Topics: 2, Replies: 3, ReactionsReceived: 1},
			},
		},
		trust: &fakeTrust{trusted: map[string]bool{}, seeds: map[string]bool{}},
		pds: &fakePDS{factors: map[string]*types.PDSTrustFactor{
			"bsky.social": {PDSHost: "bsky.social", TrustFactor: 1},
		}},
		clusters: &fakeClusters{},
		edges:    &fakeEdges{},
		scores:   &fakeScores{score: 1},
	}
}

func (f *fixture) calculator(t *testing.T) *reputation.Calculator {
	t.Helper()
	return reputation.NewCalculator(reputation.Stores{
		Accounts: f.accounts,
		Trust:    f.trust,
		PDS:      f.pds,
		Clusters: f.clusters,
		Edges:    f.edges,
	}, f.scores, zaptest.NewLogger(t))
}

func TestReputationFormula(t *testing.T) {
	t.Parallel()

	rep, err := newFixture().calculator(t).Get(context.Background(), aliceDID)
	require.NoError(t, err)

	assert.Equal(t, 17, rep.Base)
	assert.Equal(t, 17, rep.Reputation)
	assert.Equal(t, "bsky.social", rep.PDSHost)
	assert.InDelta(t, 1.0, rep.ClusterDiversityFactor, 1e-9)
}

func TestReputationDefaults(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.scores.err = errUnavailable
	f.pds.factors = map[string]*types.PDSTrustFactor{}

	rep, err := f.calculator(t).Get(context.Background(), aliceDID)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, rep.TrustScore, 1e-9)
	assert.InDelta(t, reputation.DefaultPDSTrustFactor, rep.PDSTrustFactor, 1e-9)
	// 17 * 0.1 * 0.3 = 0.51
	assert.Equal(t, 1, rep.Reputation)
}

func TestReputationPDSStoreFailureUsesDefault(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.pds.err = errUnavailable

	rep, err := f.calculator(t).Get(context.Background(), aliceDID)
	require.NoError(t, err)
	assert.InDelta(t, reputation.DefaultPDSTrustFactor, rep.PDSTrustFactor, 1e-9)
	assert.Equal(t, 5, rep.Reputation)
}

func TestClusterDiversityFactor(t *testing.T) {
	t.Parallel()

	cluster := func(internal, external int) *types.SybilCluster {
		return &types.SybilCluster{
			ID:                1,
			Status:            enum.ClusterStatusFlagged,
			InternalEdgeCount: internal,
			ExternalEdgeCount: external,
			Members: []*types.SybilClusterMember{
				{DID: aliceDID}, {DID: bobDID}, {DID: carolDID},
			},
		}
	}

	t.Run("external share of own edges", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.clusters.clusters = []*types.SybilCluster{cluster(8, 2)}
		f.edges.internal, f.edges.external = 3, 1

		rep, err := f.calculator(t).Get(context.Background(), aliceDID)
		require.NoError(t, err)
		assert.InDelta(t, 0.25, rep.ClusterDiversityFactor, 1e-9)
		assert.Equal(t, 4, rep.Reputation)
		assert.ElementsMatch(t, []string{bobDID, carolDID}, f.edges.lastMembers)
	})

	t.Run("no edges falls back to suspicion ratio", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.clusters.clusters = []*types.SybilCluster{cluster(8, 2)}

		rep, err := f.calculator(t).Get(context.Background(), aliceDID)
		require.NoError(t, err)
		assert.InDelta(t, 0.2, rep.ClusterDiversityFactor, 1e-9)
		assert.Equal(t, 3, rep.Reputation)
	})

	t.Run("lowest factor across clusters", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.clusters.clusters = []*types.SybilCluster{cluster(0, 0), cluster(9, 1)}

		rep, err := f.calculator(t).Get(context.Background(), aliceDID)
		require.NoError(t, err)
		assert.InDelta(t, 0.1, rep.ClusterDiversityFactor, 1e-9)
	})
}

func TestReputationErrors(t *testing.T) {
	t.Parallel()

	_, err := newFixture().calculator(t).Get(context.Background(), "alice")
	assert.Equal(t, types.ErrorKindValidation, types.Classify(err))

	_, err = newFixture().calculator(t).Get(context.Background(), bobDID)
	assert.Equal(t, types.ErrorKindNotFound, types.Classify(err))
}

func TestReputationStoreFailuresUseDefaults(t *testing.T) {
	t.Parallel()

	t.Run("activity", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.accounts.err = errUnavailable

		rep, err := f.calculator(t).Get(context.Background(), aliceDID)
		require.NoError(t, err)
		assert.Equal(t, types.ActivityCounts{}, *rep.Activity)
		assert.Equal(t, 0, rep.Base)
		assert.Equal(t, 0, rep.Reputation)
	})

	t.Run("clusters", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.clusters.err = errUnavailable

		rep, err := f.calculator(t).Get(context.Background(), aliceDID)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, rep.ClusterDiversityFactor, 1e-9)
		assert.Equal(t, 17, rep.Reputation)
	})

	t.Run("everything", func(t *testing.T) {
		t.Parallel()

		f := newFixture()
		f.accounts.err = errUnavailable
		f.clusters.err = errUnavailable
		f.pds.err = errUnavailable
		f.scores.err = errUnavailable

		rep, err := f.calculator(t).Get(context.Background(), aliceDID)
		require.NoError(t, err)
		assert.Equal(t, "bsky.social", rep.PDSHost)
		assert.InDelta(t, 0.1, rep.TrustScore, 1e-9)
		assert.InDelta(t, reputation.DefaultPDSTrustFactor, rep.PDSTrustFactor, 1e-9)
		assert.InDelta(t, 1.0, rep.ClusterDiversityFactor, 1e-9)
		assert.Equal(t, 0, rep.Reputation)
	})
}

func TestCanBypass(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.accounts.accounts[bobDID] = &types.Account{DID: bobDID, Handle: "bob.bsky.social", Role: enum.AccountRoleModerator}
	f.accounts.accounts[carolDID] = &types.Account{DID: carolDID, Handle: "carol.bsky.social", Role: enum.AccountRoleUser}
	calc := f.calculator(t)
	ctx := context.Background()

	ok, err := calc.CanBypass(ctx, aliceDID, communityDID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = calc.CanBypass(ctx, bobDID, communityDID)
	require.NoError(t, err)
	assert.True(t, ok, "staff")

	f.trust.trusted[aliceDID] = true
	ok, err = calc.CanBypass(ctx, aliceDID, communityDID)
	require.NoError(t, err)
	assert.True(t, ok, "trusted")

	f.trust.seeds[carolDID] = true
	ok, err = calc.CanBypass(ctx, carolDID, communityDID)
	require.NoError(t, err)
	assert.True(t, ok, "seed")

	_, err = calc.CanBypass(ctx, aliceDID, "community")
	require.ErrorIs(t, err, types.ErrInvalidDID)
}

func TestUpdatePDSFactor(t *testing.T) {
	t.Parallel()

	f := newFixture()
	calc := f.calculator(t)
	ctx := context.Background()

	record, err := calc.UpdatePDSFactor(ctx, "Example.COM", 0.75)
	require.NoError(t, err)
	assert.Equal(t, "example.com", record.PDSHost)
	assert.InDelta(t, 0.75, f.pds.factors["example.com"].TrustFactor, 1e-9)

	_, err = calc.UpdatePDSFactor(ctx, "example.com", 1.5)
	require.ErrorIs(t, err, types.ErrInvalidTrustFactor)

	_, err = calc.UpdatePDSFactor(ctx, "example.com", -0.1)
	require.ErrorIs(t, err, types.ErrInvalidTrustFactor)

	_, err = calc.UpdatePDSFactor(ctx, "not a host", 0.5)
	require.ErrorIs(t, err, types.ErrInvalidInput)

	factors, err := calc.ListPDSFactors(ctx)
	require.NoError(t, err)
	assert.Len(t, factors, 2)
}

func TestScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 17, reputation.Score(17, 1, 1, 1))
	assert.Equal(t, 0, reputation.Score(0, 1, 1, 1))
	assert.Equal(t, 9, reputation.Score(17, 1, 1, 0.5))
	assert.Equal(t, 0, reputation.Score(17, 1, 1, 0))
}
