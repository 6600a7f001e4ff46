package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/internal/worker"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
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

type staticRunner struct {
	mu     sync.Mutex
	flags  []*types.BehavioralFlag
	scopes []types.Scope
}

func (r *staticRunner) RunAll(_ context.Context, scope types.Scope) []*types.BehavioralFlag {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes = append(r.scopes, scope)
	return r.flags
}

func (r *staticRunner) runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scopes)
}

type fakeTrigger struct {
	accepted bool
	err      error
	calls    int
}

func (f *fakeTrigger) Trigger(context.Context, types.Scope) (bool, error) {
	f.calls++
	return f.accepted, f.err
}

func TestMonitorRoundTrip(t *testing.T) {
	t.Parallel()

	client, mr := newRedis(t)
	monitor := worker.NewMonitor(client, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, monitor.ReportStatus(ctx, worker.Status{
		WorkerID:    "w1",
		WorkerType:  "heuristics",
		CurrentTask: "Running detectors",
		IsHealthy:   true,
	}))
	require.NoError(t, mr.Set("worker:broken:w2", "{not json"))

	assert.Equal(t, worker.HeartbeatTTL, mr.TTL("worker:heuristics:w1"))

	statuses, err := monitor.GetAllStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, "w1", statuses[0].WorkerID)
	assert.Equal(t, "Running detectors", statuses[0].CurrentTask)
	assert.True(t, statuses[0].IsOnline(time.Now()))
	assert.False(t, statuses[0].IsOnline(time.Now().Add(2*worker.StaleThreshold)))
}

func TestHeuristicsWorkerRunOnce(t *testing.T) {
	t.Parallel()

	client, _ := newRedis(t)
	runner := &staticRunner{flags: []*types.BehavioralFlag{
		{FlagType: enum.FlagTypeBurstVoting},
		{FlagType: enum.FlagTypeBurstVoting},
		{FlagType: enum.FlagTypeLowDiversity},
	}}
	w := worker.NewHeuristicsWorker(runner, client, time.Minute, zaptest.NewLogger(t))

	counts := w.RunOnce(context.Background())

	assert.Equal(t, map[enum.FlagType]int{
		enum.FlagTypeBurstVoting:  2,
		enum.FlagTypeLowDiversity: 1,
	}, counts)
	require.Len(t, runner.scopes, 1)
	assert.True(t, runner.scopes[0].IsGlobal())
}

func TestHeuristicsWorkerStopsOnCancel(t *testing.T) {
	t.Parallel()

	client, _ := newRedis(t)
	runner := &staticRunner{}
	w := worker.NewHeuristicsWorker(runner, client, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runner.runs() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestRecomputeWorkerRunOnce(t *testing.T) {
	t.Parallel()

	client, _ := newRedis(t)
	ctx := context.Background()

	accepted := &fakeTrigger{accepted: true}
	assert.True(t, worker.NewRecomputeWorker(accepted, client, time.Hour, zaptest.NewLogger(t)).RunOnce(ctx))

	throttled := &fakeTrigger{}
	assert.False(t, worker.NewRecomputeWorker(throttled, client, time.Hour, zaptest.NewLogger(t)).RunOnce(ctx))

	failing := &fakeTrigger{err: errors.New("stopped")}
	assert.False(t, worker.NewRecomputeWorker(failing, client, time.Hour, zaptest.NewLogger(t)).RunOnce(ctx))
	assert.Equal(t, 1, failing.calls)
}
