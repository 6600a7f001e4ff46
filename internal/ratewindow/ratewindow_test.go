package ratewindow_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/barazo-forum/barazo-api-sub002/internal/ratewindow"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setupTest(t *testing.T) (*ratewindow.Window, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return ratewindow.New(client, zaptest.NewLogger(t)), mr
}

func TestCheckAndRecordLimit(t *testing.T) {
	t.Parallel()
	window, mr := setupTest(t)

	ctx := t.Context()
	key := ratewindow.BurstKey("did:plc:community", "did:plc:author")
	start := time.UnixMilli(1_700_000_000_000)

	for i := range 3 {
		exceeded := window.CheckAndRecord(ctx, key, start.Add(time.Duration(i)*time.Second), time.Minute, 3)
		assert.False(t, exceeded, "call %d should be allowed", i+1)
	}

	// Fourth call inside the window is rejected and not recorded
	assert.True(t, window.CheckAndRecord(ctx, key, start.Add(3*time.Second), time.Minute, 3))
	members, err := mr.ZMembers(key)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	// Once the window has passed the old entries are trimmed
	later := start.Add(time.Minute + 3*time.Second)
	assert.False(t, window.CheckAndRecord(ctx, key, later, time.Minute, 3))
	members, err = mr.ZMembers(key)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestCheckAndRecordSetsExpiry(t *testing.T) {
	t.Parallel()
	window, mr := setupTest(t)

	key := ratewindow.WriteKey("did:plc:author")
	assert.False(t, window.CheckAndRecord(t.Context(), key, time.Now(), time.Minute, 5))

	ttl := mr.TTL(key)
	assert.Greater(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, time.Minute+2*time.Second)
}

func TestCheckAndRecordDisabled(t *testing.T) {
	t.Parallel()
	window, mr := setupTest(t)

	tests := []struct {
		name   string
		window time.Duration
		limit  int
	}{
		{name: "zero limit", window: time.Minute, limit: 0},
		{name: "negative limit", window: time.Minute, limit: -1},
		{name: "zero window", window: 0, limit: 3},
	}

	for _, tt := range tests {
		assert.False(t, window.CheckAndRecord(t.Context(), "ratewindow:disabled", time.Now(), tt.window, tt.limit), tt.name)
	}
	assert.False(t, mr.Exists("ratewindow:disabled"))
}

func TestCheckAndRecordFailsOpen(t *testing.T) {
	t.Parallel()
	window, mr := setupTest(t)

	mr.SetError("ERR server unavailable")

	for range 10 {
		assert.False(t, window.CheckAndRecord(t.Context(), "ratewindow:down", time.Now(), time.Minute, 1))
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ratewindow:burst:did:plc:c:did:plc:a", ratewindow.BurstKey("did:plc:c", "did:plc:a"))
	assert.Equal(t, "ratewindow:write:did:plc:a", ratewindow.WriteKey("did:plc:a"))
}
