// Package worker contains the long-running loops hosted by cmd/worker.
package worker

import (
	"context"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/database/types"
	"github.com/barazo-forum/barazo-api-sub002/internal/database/types/enum"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// FlagRunner runs every behavioral detector over a scope.
type FlagRunner interface {
	RunAll(ctx context.Context, scope types.Scope) []*types.BehavioralFlag
}

// HeuristicsWorker runs the behavioral detectors on a schedule.
type HeuristicsWorker struct {
	engine   FlagRunner
	scope    types.Scope
	interval time.Duration
	reporter *StatusReporter
	logger   *zap.Logger
}

// NewHeuristicsWorker creates a worker that runs the detectors over the global
// scope every interval.
func NewHeuristicsWorker(
	engine FlagRunner, statusClient rueidis.Client, interval time.Duration, logger *zap.Logger,
) *HeuristicsWorker {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HeuristicsWorker{
		engine:   engine,
		scope:    types.Global(),
		interval: interval,
		reporter: NewStatusReporter(statusClient, "heuristics", logger),
		logger:   logger.Named("heuristics_worker"),
	}
}

// Start runs until ctx is cancelled.
func (w *HeuristicsWorker) Start(ctx context.Context) {
	w.logger.Info("Heuristics Worker started",
		zap.String("workerID", w.reporter.GetWorkerID()),
		zap.Duration("interval", w.interval))
	w.reporter.Start(ctx)
	defer w.reporter.Stop()

	for {
		if utils.ContextGuard(ctx) {
			w.logger.Info("Context cancelled, stopping heuristics worker")
			return
		}

		w.RunOnce(ctx)

		if !utils.IntervalSleep(ctx, w.interval, w.logger, "heuristics worker") {
			return
		}
	}
}

// RunOnce executes a single detector pass and returns the per-type flag counts.
func (w *HeuristicsWorker) RunOnce(ctx context.Context) map[enum.FlagType]int {
	w.reporter.UpdateStatus("Running detectors", 0)
	start := time.Now()

	flags := w.engine.RunAll(ctx, w.scope)

	counts := make(map[enum.FlagType]int, 3)
	for _, flag := range flags {
		counts[flag.FlagType]++
	}

	w.logger.Info("Heuristics run finished",
		zap.Int("flags", len(flags)),
		zap.Int(string(enum.FlagTypeBurstVoting), counts[enum.FlagTypeBurstVoting]),
		zap.Int(string(enum.FlagTypeContentSimilarity), counts[enum.FlagTypeContentSimilarity]),
		zap.Int(string(enum.FlagTypeLowDiversity), counts[enum.FlagTypeLowDiversity]),
		zap.Duration("duration", time.Since(start)))

	w.reporter.UpdateStatus("Completed", 100)
	return counts
}
