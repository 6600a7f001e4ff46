package worker

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// retryDelay is the pause after a failed trigger.
const retryDelay = time.Minute

// Triggerer schedules trust score recomputes.
type Triggerer interface {
	Trigger(ctx context.Context, scope types.Scope) (bool, error)
}

// RecomputeWorker requests a global trust score recompute on a schedule. The
// recomputer's throttle keeps admin and scheduled triggers from overlapping.
type RecomputeWorker struct {
	recomputer Triggerer
	interval   time.Duration
	reporter   *StatusReporter
	logger     *zap.Logger
}

// NewRecomputeWorker creates a RecomputeWorker.
func NewRecomputeWorker(
	recomputer Triggerer, statusClient rueidis.Client, interval time.Duration, logger *zap.Logger,
) *RecomputeWorker {
	if interval <= 0 {
		interval = time.Hour
	}

	return &RecomputeWorker{
		recomputer: recomputer,
		interval:   interval,
		reporter:   NewStatusReporter(statusClient, "recompute", logger),
		logger:     logger.Named("recompute_worker"),
	}
}

// Start runs until ctx is cancelled.
func (w *RecomputeWorker) Start(ctx context.Context) {
	w.logger.Info("Recompute Worker started",
		zap.String("workerID", w.reporter.GetWorkerID()),
		zap.Duration("interval", w.interval))
	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	for {
		if utils.ContextGuard(ctx) {
			w.logger.Info("Context cancelled, stopping recompute worker")
			return
		}

		w.RunOnce(ctx)

		if !w.reporter.Snapshot().IsHealthy {
			if !utils.ErrorSleep(ctx, retryDelay, w.logger, "recompute worker") {
				return
			}
			continue
		}

		if !utils.IntervalSleep(ctx, w.interval, w.logger, "recompute worker") {
			return
		}
	}
}

// RunOnce requests one global recompute and reports whether it was queued.
func (w *RecomputeWorker) RunOnce(ctx context.Context) bool {
	accepted, err := w.recomputer.Trigger(ctx, types.Global())
	switch {
	case err != nil:
		w.reporter.SetHealthy(false)
		w.logger.Error("Failed to trigger recompute", zap.Error(err))
	case accepted:
		w.reporter.SetHealthy(true)
		w.logger.Info("Global trust score recompute queued")
	default:
		w.reporter.SetHealthy(true)
		w.logger.Debug("Global trust score recompute skipped")
	}

	w.reporter.UpdateStatus("Waiting", 100)
	return accepted
}
