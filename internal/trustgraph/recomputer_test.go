package trustgraph_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/trustgraph"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeComputer struct {
	mu      sync.Mutex
	calls   []types.Scope
	err     error
	block   chan struct{}
	started chan types.Scope
}

func (f *fakeComputer) ComputeTrustScores(ctx context.Context, scope types.Scope) error {
	f.mu.Lock()
	f.calls = append(f.calls, scope)
	err := f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- scope
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeComputer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var fastRetry = utils.RetryOptions{
	MaxElapsedTime:  time.Second,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxRetries:      2,
}

func newRedisClient(t *testing.T, mr *miniredis.Miniredis) rueidis.Client {
	t.Helper()

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func newStoppedRecomputer(
	t *testing.T, mr *miniredis.Miniredis, computer trustgraph.Computer, opts ...trustgraph.RecomputerOption,
) *trustgraph.Recomputer {
	t.Helper()

	return trustgraph.NewRecomputer(computer, newRedisClient(t, mr), zaptest.NewLogger(t), append([]trustgraph.RecomputerOption{
		trustgraph.WithRetryOptions(fastRetry),
	}, opts...)...)
}

func newRecomputer(t *testing.T, computer trustgraph.Computer, opts ...trustgraph.RecomputerOption) (*trustgraph.Recomputer, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	r := newStoppedRecomputer(t, mr, computer, opts...)
	r.Start(t.Context())
	t.Cleanup(r.Stop)

	return r, mr
}

func TestTriggerRunsOncePerThrottleWindow(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{}
	r, mr := newRecomputer(t, computer)

	accepted, err := r.Trigger(t.Context(), types.Global())
	require.NoError(t, err)
	assert.True(t, accepted)

	accepted, err = r.Trigger(t.Context(), types.Global())
	require.NoError(t, err)
	assert.False(t, accepted, "second trigger within the hour is throttled")

	assert.Equal(t, time.Hour, mr.TTL("trustgraph:recompute:throttle:global"))

	assert.Eventually(t, func() bool {
		status, err := r.Status(t.Context(), types.Global())
		return err == nil && status != nil && status.State == trustgraph.StateSucceeded
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, computer.callCount())

	// Another scope has its own throttle
	accepted, err = r.Trigger(t.Context(), types.Community("did:plc:community0000000000000"))
	require.NoError(t, err)
	assert.True(t, accepted)
}

func TestTriggerRecordsFailure(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{err: errors.New("provider down")}
	r, _ := newRecomputer(t, computer)

	accepted, err := r.Trigger(t.Context(), types.Global())
	require.NoError(t, err)
	require.True(t, accepted)

	var status *trustgraph.RecomputeStatus
	require.Eventually(t, func() bool {
		status, err = r.Status(t.Context(), types.Global())
		return err == nil && status != nil && status.State == trustgraph.StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 3, status.Attempts)
	assert.Contains(t, status.Error, "provider down")
	assert.False(t, status.FinishedAt.IsZero())
}

func TestTriggerFailsClosedOnCacheError(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{}
	r, mr := newRecomputer(t, computer)

	mr.SetError("READONLY")
	accepted, err := r.Trigger(t.Context(), types.Global())
	require.NoError(t, err)
	assert.False(t, accepted)

	mr.SetError("")
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, computer.callCount())
}

func TestTriggerDropsWhenQueueFull(t *testing.T) {
	t.Parallel()

	computer := &fakeComputer{block: make(chan struct{}), started: make(chan types.Scope, 4)}
	r, mr := newRecomputer(t, computer, trustgraph.WithQueueSize(1))
	t.Cleanup(func() { close(computer.block) })

	first := types.Community("did:plc:first000000000000000")
	second := types.Community("did:plc:second00000000000000")
	third := types.Community("did:plc:third000000000000000")

	accepted, err := r.Trigger(t.Context(), first)
	require.NoError(t, err)
	require.True(t, accepted)
	<-computer.started

	accepted, err = r.Trigger(t.Context(), second)
	require.NoError(t, err)
	require.True(t, accepted)

	accepted, err = r.Trigger(t.Context(), third)
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.False(t, mr.Exists("trustgraph:recompute:throttle:"+third.Key()), "dropped job releases its throttle")
}

func TestTriggerAfterStop(t *testing.T) {
	t.Parallel()

	r, _ := newRecomputer(t, &fakeComputer{})
	r.Stop()

	_, err := r.Trigger(t.Context(), types.Global())
	require.ErrorIs(t, err, trustgraph.ErrRecomputerStopped)
}

func TestStopDropsInterruptedJob(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	computer := &fakeComputer{block: make(chan struct{}), started: make(chan types.Scope, 1)}
	r := newStoppedRecomputer(t, mr, computer)
	r.Start(t.Context())

	accepted, err := r.Trigger(t.Context(), types.Global())
	require.NoError(t, err)
	require.True(t, accepted)
	<-computer.started

	r.Stop()

	status, err := r.Status(t.Context(), types.Global())
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, trustgraph.StateDropped, status.State)
	assert.Equal(t, trustgraph.ErrRecomputerStopped.Error(), status.Error)
	assert.False(t, mr.Exists("trustgraph:recompute:throttle:global"), "interrupted job releases its throttle")
}

func TestTriggerHandsOffToAnotherProcess(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	// The triggering side never starts a consumer and exits right away
	producer := newStoppedRecomputer(t, mr, &fakeComputer{})
	accepted, err := producer.Trigger(t.Context(), types.Global())
	require.NoError(t, err)
	require.True(t, accepted)
	producer.Stop()

	status, err := producer.Status(t.Context(), types.Global())
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, trustgraph.StateQueued, status.State)

	computer := &fakeComputer{}
	consumer := newStoppedRecomputer(t, mr, computer)
	consumer.Start(t.Context())
	t.Cleanup(consumer.Stop)

	assert.Eventually(t, func() bool {
		status, err := consumer.Status(t.Context(), types.Global())
		return err == nil && status != nil && status.State == trustgraph.StateSucceeded
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, computer.callCount())
	assert.True(t, mr.Exists("trustgraph:recompute:throttle:global"), "completed job keeps its throttle")
}
