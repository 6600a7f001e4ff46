package antispam_test

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/require"
)

const (
	communityDID = "did:plc:community0000000000000"
	authorDID    = "did:plc:author000000000000000"
)

func newRedis(t *testing.T) (rueidis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, mr
}

type fakeSettingsStore struct {
	mu      sync.Mutex
	rows    map[string]*types.CommunitySetting
	reads   int
	readErr error
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{rows: make(map[string]*types.CommunitySetting)}
}

func (f *fakeSettingsStore) GetCommunitySetting(_ context.Context, communityDID string) (*types.CommunitySetting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.rows[communityDID], nil
}

func (f *fakeSettingsStore) SaveCommunitySetting(_ context.Context, setting *types.CommunitySetting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[setting.CommunityDID] = setting
	return nil
}

type fakeAccounts struct {
	accounts map[string]*types.Account
	err      error
}

func (f *fakeAccounts) GetAccount(_ context.Context, did string) (*types.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[did], nil
}

type fakeTrust struct {
	records map[string]*types.AccountTrust
}

func (f *fakeTrust) GetAccountTrust(_ context.Context, did, communityDID string) (*types.AccountTrust, error) {
	return f.records[did+"|"+communityDID], nil
}

type fakeQueue struct {
	items []*types.ModerationQueueItem
}

func (f *fakeQueue) EnqueueHeld(_ context.Context, items []*types.ModerationQueueItem) error {
	f.items = append(f.items, items...)
	return nil
}

type staticSettings types.AntiSpamSettings

func (s staticSettings) Load(context.Context, string) types.AntiSpamSettings {
	return types.AntiSpamSettings(s)
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }
