package trustgraph

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/redis/rueidis"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// ErrRecomputerStopped is returned when triggering after Stop.
var ErrRecomputerStopped = errors.New("recompute dispatcher stopped")

// Recompute job states stored in the status hash.
const (
	StateQueued    = "queued"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
	StateDropped   = "dropped"
)

const (
	// statusTTL bounds how long a finished job's status is kept.
	statusTTL = 7 * 24 * time.Hour

	// jobsKey is the Redis list shared by every process that triggers or runs jobs.
	jobsKey = "trustgraph:recompute:jobs"

	// popTimeout bounds each blocking pop so Stop is noticed promptly.
	popTimeout = time.Second
)

// enqueueScript pushes a job unless the queue already holds the capacity.
//
// KEYS[1] jobs list
// ARGV[1] scope key, ARGV[2] capacity.
const enqueueScript = `
	if redis.call('LLEN', KEYS[1]) >= tonumber(ARGV[2]) then
		return 0
	end
	redis.call('LPUSH', KEYS[1], ARGV[1])
	return 1
`

// Computer starts a trust score recompute.
type Computer interface {
	ComputeTrustScores(ctx context.Context, scope types.Scope) error
}

// RecomputeStatus is the last known state of a scope's recompute.
type RecomputeStatus struct {
	Scope      types.Scope `json:"scope"`
	State      string      `json:"state"`
	QueuedAt   time.Time   `json:"queuedAt,omitzero"`
	StartedAt  time.Time   `json:"startedAt,omitzero"`
	FinishedAt time.Time   `json:"finishedAt,omitzero"`
	Attempts   int         `json:"attempts"`
	Error      string      `json:"error,omitempty"`
}

// RecomputerOption customizes a Recomputer.
type RecomputerOption func(*Recomputer)

// WithRetryOptions overrides the retry policy used for each job.
func WithRetryOptions(opts utils.RetryOptions) RecomputerOption {
	return func(r *Recomputer) {
		r.retry = opts
	}
}

// WithThrottle overrides the minimum spacing between two jobs of one scope.
func WithThrottle(d time.Duration) RecomputerOption {
	return func(r *Recomputer) {
		r.throttle = d
	}
}

// WithQueueSize overrides the job queue capacity.
func WithQueueSize(n int) RecomputerOption {
	return func(r *Recomputer) {
		r.queueSize = max(n, 1)
	}
}

// Recomputer queues throttled, fire-and-forget recompute jobs on a Redis list
// and, once started, consumes them and records their outcome in Redis. Any
// process may trigger; only started processes run jobs.
type Recomputer struct {
	computer  Computer
	client    rueidis.Client
	throttle  time.Duration
	retry     utils.RetryOptions
	queueSize int
	wg        conc.WaitGroup
	cancel    context.CancelFunc
	stopped   bool
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRecomputer creates a Recomputer. Call Start to also run jobs.
func NewRecomputer(computer Computer, client rueidis.Client, logger *zap.Logger, opts ...RecomputerOption) *Recomputer {
	r := &Recomputer{
		computer:  computer,
		client:    client,
		throttle:  time.Hour,
		retry:     utils.GetRecomputeRetryOptions(),
		queueSize: 16,
		logger:    logger.Named("trustgraph_recompute"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the job consumer. Jobs run with a context detached from the
// triggering request and are cancelled by Stop.
func (r *Recomputer) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(context.WithoutCancel(ctx))
	r.wg.Go(func() {
		r.consume(ctx)
	})
}

// Stop cancels the running job and waits for the consumer to exit. The
// interrupted job is marked dropped and its throttle released; jobs still on
// the list stay there for the next consumer.
func (r *Recomputer) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Trigger schedules a recompute for the scope unless one ran within the
// throttle window. It reports whether a job was queued. A cache failure skips
// the trigger rather than risking a flood of recomputes.
func (r *Recomputer) Trigger(ctx context.Context, scope types.Scope) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return false, ErrRecomputerStopped
	}

	key := throttleKey(scope)
	err := r.client.Do(ctx, r.client.B().Set().Key(key).Value(strconv.FormatInt(time.Now().Unix(), 10)).
		Nx().Ex(r.throttle).Build()).Error()
	switch {
	case rueidis.IsRedisNil(err):
		recomputesTotal.WithLabelValues("throttled").Inc()
		r.logger.Debug("Recompute throttled", zap.String("scope", scope.Key()))
		return false, nil
	case err != nil:
		recomputesTotal.WithLabelValues("cache_error").Inc()
		r.logger.Warn("Failed to acquire recompute throttle, skipping trigger",
			zap.String("scope", scope.Key()),
			zap.Error(err))
		return false, nil
	}

	// Recorded before the hand-off so the consumer's updates always come later
	r.writeStatus(ctx, scope,
		"state", StateQueued,
		"queued_at", time.Now().UTC().Format(time.RFC3339Nano),
		"started_at", "",
		"finished_at", "",
		"attempts", "0",
		"error", "")

	queued, err := r.client.Do(ctx, r.client.B().Eval().
		Script(enqueueScript).
		Numkeys(1).
		Key(jobsKey).
		Arg(scope.Key()).
		Arg(strconv.Itoa(r.queueSize)).
		Build()).AsInt64()
	if err != nil || queued == 0 {
		reason := "recompute queue full"
		if err != nil {
			reason = "failed to queue recompute: " + err.Error()
		}
		recomputesTotal.WithLabelValues("dropped").Inc()
		r.logger.Warn("Dropping recompute job", zap.String("scope", scope.Key()), zap.String("reason", reason))
		r.drop(ctx, scope, reason)
		return false, nil
	}

	recomputesTotal.WithLabelValues("queued").Inc()
	return true, nil
}

// Status returns the last recorded job state for a scope, or nil if none.
func (r *Recomputer) Status(ctx context.Context, scope types.Scope) (*RecomputeStatus, error) {
	fields, err := r.client.Do(ctx, r.client.B().Hgetall().Key(statusKey(scope)).Build()).AsStrMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read recompute status: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	attempts, _ := strconv.Atoi(fields["attempts"])
	return &RecomputeStatus{
		Scope:      scope,
		State:      fields["state"],
		QueuedAt:   parseTime(fields["queued_at"]),
		StartedAt:  parseTime(fields["started_at"]),
		FinishedAt: parseTime(fields["finished_at"]),
		Attempts:   attempts,
		Error:      fields["error"],
	}, nil
}

func (r *Recomputer) consume(ctx context.Context) {
	for {
		if utils.ContextGuard(ctx) {
			return
		}

		scope, ok, err := r.next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Warn("Failed to read recompute queue", zap.Error(err))
			if !utils.ErrorSleep(ctx, popTimeout, r.logger, "recompute dispatcher") {
				return
			}
			continue
		}
		if ok {
			r.run(ctx, scope)
		}
	}
}

// next pops the oldest queued job, waiting up to popTimeout.
func (r *Recomputer) next(ctx context.Context) (types.Scope, bool, error) {
	vals, err := r.client.Do(ctx, r.client.B().Brpop().Key(jobsKey).Timeout(popTimeout.Seconds()).Build()).AsStrSlice()
	if rueidis.IsRedisNil(err) {
		return types.Scope{}, false, nil
	}
	if err != nil {
		return types.Scope{}, false, err
	}
	if len(vals) != 2 {
		return types.Scope{}, false, fmt.Errorf("unexpected pop reply of %d elements", len(vals))
	}

	scope, err := types.ParseScope(vals[1])
	if err != nil {
		r.logger.Error("Discarding malformed recompute job", zap.String("job", vals[1]), zap.Error(err))
		return types.Scope{}, false, nil
	}
	return scope, true, nil
}

func (r *Recomputer) run(ctx context.Context, scope types.Scope) {
	r.writeStatus(ctx, scope,
		"state", StateRunning,
		"started_at", time.Now().UTC().Format(time.RFC3339Nano))

	attempts := 0
	_, err := utils.WithRetry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, r.computer.ComputeTrustScores(ctx, scope)
	}, r.retry)

	finished := time.Now().UTC().Format(time.RFC3339Nano)
	if err != nil && ctx.Err() != nil {
		recomputesTotal.WithLabelValues("dropped").Inc()
		r.logger.Warn("Recompute interrupted by shutdown", zap.String("scope", scope.Key()))
		r.writeStatus(ctx, scope, "finished_at", finished, "attempts", strconv.Itoa(attempts))
		r.drop(ctx, scope, ErrRecomputerStopped.Error())
		return
	}
	if err != nil {
		recomputesTotal.WithLabelValues("failed").Inc()
		r.logger.Error("Trust score recompute failed",
			zap.String("scope", scope.Key()),
			zap.Int("attempts", attempts),
			zap.Error(err))
		r.writeStatus(ctx, scope,
			"state", StateFailed,
			"finished_at", finished,
			"attempts", strconv.Itoa(attempts),
			"error", err.Error())
		return
	}

	recomputesTotal.WithLabelValues("succeeded").Inc()
	r.logger.Info("Trust score recompute finished",
		zap.String("scope", scope.Key()),
		zap.Int("attempts", attempts))
	r.writeStatus(ctx, scope,
		"state", StateSucceeded,
		"finished_at", finished,
		"attempts", strconv.Itoa(attempts),
		"error", "")
}

// writeStatus updates fields of the scope's status hash. Failures are logged only.
func (r *Recomputer) writeStatus(ctx context.Context, scope types.Scope, kv ...string) {
	key := statusKey(scope)
	fv := r.client.B().Hset().Key(key).FieldValue()
	for i := 0; i+1 < len(kv); i += 2 {
		fv = fv.FieldValue(kv[i], kv[i+1])
	}

	// Status must be recorded even when the job context was just cancelled
	ctx = context.WithoutCancel(ctx)
	cmds := []rueidis.Completed{
		fv.Build(),
		r.client.B().Expire().Key(key).Seconds(int64(statusTTL.Seconds())).Build(),
	}
	for _, resp := range r.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			r.logger.Warn("Failed to record recompute status", zap.String("scope", scope.Key()), zap.Error(err))
			return
		}
	}
}

// drop marks the scope's job dropped and releases its throttle so the next
// trigger is not held back by a job that never ran.
func (r *Recomputer) drop(ctx context.Context, scope types.Scope, reason string) {
	r.writeStatus(ctx, scope, "state", StateDropped, "error", reason)

	ctx = context.WithoutCancel(ctx)
	if err := r.client.Do(ctx, r.client.B().Del().Key(throttleKey(scope)).Build()).Error(); err != nil {
		r.logger.Warn("Failed to release recompute throttle", zap.String("scope", scope.Key()), zap.Error(err))
	}
}

func throttleKey(scope types.Scope) string {
	return "trustgraph:recompute:throttle:" + scope.Key()
}

func statusKey(scope types.Scope) string {
	return "trustgraph:recompute:status:" + scope.Key()
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
