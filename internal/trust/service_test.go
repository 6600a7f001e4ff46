package trust_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/internal/trust"
	"github.com/barazo-forum/barazo-api-sub002/internal/trustgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	communityDID = "did:plc:community0000000000000"
	userDID      = "did:plc:user0000000000000000000"
	adminDID     = "did:plc:admin000000000000000000"
	modDID       = "did:plc:moderator00000000000000"
)

type memoryStore struct {
	ledger map[string]*types.AccountTrust
	seeds  []*types.TrustSeed
	nextID int64
}

func (m *memoryStore) GetAccountTrust(_ context.Context, did, communityDID string) (*types.AccountTrust, error) {
	return m.ledger[did+"|"+communityDID], nil
}

func (m *memoryStore) CountTrusted(context.Context) (int, error) {
	n := 0
	for _, l := range m.ledger {
		if l.IsTrusted {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) ListSeeds(_ context.Context, scope *types.Scope) ([]*types.TrustSeed, error) {
	var out []*types.TrustSeed
	for _, s := range m.seeds {
		if scope == nil || s.CommunityDID == *scope {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateSeed(_ context.Context, seed *types.TrustSeed) error {
	for _, s := range m.seeds {
		if s.DID == seed.DID && s.CommunityDID == seed.CommunityDID {
			return fmt.Errorf("%w: %s", types.ErrDuplicateSeed, seed.DID)
		}
	}
	m.nextID++
	seed.ID = m.nextID
	m.seeds = append(m.seeds, seed)
	return nil
}

func (m *memoryStore) DeleteSeed(_ context.Context, id int64) error {
	for i, s := range m.seeds {
		if s.ID == id {
			m.seeds = append(m.seeds[:i], m.seeds[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: id %d", types.ErrSeedNotFound, id)
}

func (m *memoryStore) IsSeed(_ context.Context, did, communityDID string) (bool, error) {
	for _, s := range m.seeds {
		if s.DID == did && (s.CommunityDID.IsGlobal() || s.CommunityDID.CommunityDID() == communityDID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) CountSeeds(context.Context) (int, error) {
	return len(m.seeds), nil
}

type accountStore map[string]*types.Account

func (a accountStore) GetAccount(_ context.Context, did string) (*types.Account, error) {
	return a[did], nil
}

func (a accountStore) ListStaff(context.Context) ([]*types.Account, error) {
	var out []*types.Account
	for _, did := range []string{adminDID, modDID} {
		if acc, ok := a[did]; ok && acc.IsStaff() {
			out = append(out, acc)
		}
	}
	return out, nil
}

type fixedCount int

func (f fixedCount) CountPending(context.Context) (int, error) { return int(f), nil }

func (f fixedCount) CountByStatus(context.Context, enum.ClusterStatus) (int, error) { return int(f), nil }

type scoreProvider struct {
	score float64
	err   error
}

func (s scoreProvider) GetTrustScore(context.Context, string, types.Scope) (float64, error) {
	return s.score, s.err
}

type noopRecomputer struct{}

func (noopRecomputer) Trigger(context.Context, types.Scope) (bool, error) { return true, nil }

func (noopRecomputer) Status(context.Context, types.Scope) (*trustgraph.RecomputeStatus, error) {
	return nil, nil
}

func setup(t *testing.T, scores scoreProvider) (*trust.Service, *memoryStore) {
	t.Helper()

	store := &memoryStore{ledger: make(map[string]*types.AccountTrust)}
	accounts := accountStore{
		userDID:  {DID: userDID, Role: enum.AccountRoleUser},
		adminDID: {DID: adminDID, Role: enum.AccountRoleAdmin, FirstSeenAt: time.Unix(1_600_000_000, 0)},
		modDID:   {DID: modDID, Role: enum.AccountRoleModerator},
	}

	service := trust.NewService(trust.Stores{
		Trust:    store,
		Accounts: accounts,
		Queue:    fixedCount(4),
		Flags:    fixedCount(2),
		Clusters: fixedCount(1),
	}, scores, noopRecomputer{}, zaptest.NewLogger(t))

	return service, store
}

func TestStatus(t *testing.T) {
	t.Parallel()

	service, store := setup(t, scoreProvider{score: 0.7})
	trustedAt := time.Now().Add(-time.Hour)
	store.ledger[userDID+"|"+communityDID] = &types.AccountTrust{
		DID: userDID, CommunityDID: communityDID, ApprovedPostCount: 12, IsTrusted: true, TrustedAt: trustedAt,
	}

	status, err := service.Status(t.Context(), userDID, communityDID)
	require.NoError(t, err)
	assert.Equal(t, 12, status.ApprovedPostCount)
	assert.True(t, status.IsTrusted)
	assert.Equal(t, trustedAt, status.TrustedAt)
	assert.False(t, status.IsStaff)
	assert.False(t, status.IsSeed)
	assert.InDelta(t, 0.7, status.TrustScore, 1e-9)

	status, err = service.Status(t.Context(), adminDID, communityDID)
	require.NoError(t, err)
	assert.True(t, status.IsStaff)
	assert.True(t, status.IsSeed)
	assert.Zero(t, status.ApprovedPostCount)

	_, err = service.Status(t.Context(), "user", communityDID)
	require.ErrorIs(t, err, types.ErrInvalidDID)
}

func TestStatusDefaultsTrustScore(t *testing.T) {
	t.Parallel()

	service, _ := setup(t, scoreProvider{err: errors.New("timeout")})

	status, err := service.Status(t.Context(), userDID, communityDID)
	require.NoError(t, err)
	assert.InDelta(t, trustgraph.DefaultScore, status.TrustScore, 1e-9)
}

func TestListSeedsMergesImplicitStaff(t *testing.T) {
	t.Parallel()

	service, _ := setup(t, scoreProvider{})

	_, err := service.CreateSeed(t.Context(), userDID, types.Community(communityDID), adminDID, "long-standing member")
	require.NoError(t, err)
	_, err = service.CreateSeed(t.Context(), modDID, types.Global(), adminDID, "")
	require.NoError(t, err)

	all, err := service.ListSeeds(t.Context(), nil)
	require.NoError(t, err)
	require.Len(t, all, 3)

	implicit := all[2]
	assert.Equal(t, adminDID, implicit.DID)
	assert.True(t, implicit.Implicit)
	assert.True(t, implicit.CommunityDID.IsGlobal())
	assert.Equal(t, "staff role: admin", implicit.Reason)

	global := types.Global()
	globalSeeds, err := service.ListSeeds(t.Context(), &global)
	require.NoError(t, err)
	require.Len(t, globalSeeds, 2)
	assert.Equal(t, modDID, globalSeeds[0].DID)
	assert.False(t, globalSeeds[0].Implicit)

	community := types.Community(communityDID)
	communitySeeds, err := service.ListSeeds(t.Context(), &community)
	require.NoError(t, err)
	require.Len(t, communitySeeds, 1)
	assert.Equal(t, userDID, communitySeeds[0].DID)
}

func TestSeedAdministration(t *testing.T) {
	t.Parallel()

	service, store := setup(t, scoreProvider{})

	seed, err := service.CreateSeed(t.Context(), userDID, types.Global(), adminDID, "  trusted  ")
	require.NoError(t, err)
	assert.Equal(t, "trusted", seed.Reason)

	_, err = service.CreateSeed(t.Context(), userDID, types.Global(), adminDID, "again")
	require.ErrorIs(t, err, types.ErrDuplicateSeed)
	assert.Equal(t, types.ErrorKindConflict, types.Classify(err))

	_, err = service.CreateSeed(t.Context(), "nobody", types.Global(), adminDID, "")
	require.ErrorIs(t, err, types.ErrInvalidDID)

	require.NoError(t, service.DeleteSeed(t.Context(), seed.ID))
	assert.Empty(t, store.seeds)

	err = service.DeleteSeed(t.Context(), seed.ID)
	require.ErrorIs(t, err, types.ErrNotFound)

	require.ErrorIs(t, service.DeleteSeed(t.Context(), 0), types.ErrInvalidInput)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	service, store := setup(t, scoreProvider{})
	store.ledger["a"] = &types.AccountTrust{IsTrusted: true}
	store.ledger["b"] = &types.AccountTrust{}
	_, err := service.CreateSeed(t.Context(), userDID, types.Global(), adminDID, "")
	require.NoError(t, err)

	m, err := service.Metrics(t.Context())
	require.NoError(t, err)
	assert.Equal(t, trust.Metrics{
		TrustedAccounts:   1,
		ExplicitSeeds:     1,
		ImplicitSeeds:     2,
		PendingQueueItems: 4,
		FlaggedClusters:   1,
		PendingFlags:      2,
	}, *m)
}
