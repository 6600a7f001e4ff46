package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/barazo-forum/barazo-api-sub002/internal/setup"
	"github.com/barazo-forum/barazo-api-sub002/internal/setup/telemetry"
	"github.com/barazo-forum/barazo-api-sub002/internal/worker"
	"github.com/barazo-forum/barazo-api-sub002/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// HeuristicsWorker runs the behavioral detectors.
	HeuristicsWorker = "heuristics"

	// RecomputeWorker schedules global trust score recomputes.
	RecomputeWorker = "recompute"

	// AllWorkers runs every worker in one process.
	AllWorkers = "all"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the trust and anti-abuse background workers",
		Commands: []*cli.Command{
			{
				Name:  HeuristicsWorker,
				Usage: "Start the behavioral heuristics worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorkers(ctx, HeuristicsWorker)
				},
			},
			{
				Name:  RecomputeWorker,
				Usage: "Start the trust score recompute scheduler",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorkers(ctx, RecomputeWorker)
				},
			},
			{
				Name:  AllWorkers,
				Usage: "Start every worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runWorkers(ctx, HeuristicsWorker, RecomputeWorker)
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.Run(ctx, os.Args)
}

// runWorkers starts the named workers and blocks until ctx is cancelled.
func runWorkers(ctx context.Context, workerTypes ...string) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, true)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	cfg := app.Config.Worker

	// Stagger restarts of several worker processes
	if cfg.StartupDelay > 0 {
		app.Logger.Info("Delaying worker startup", zap.Int("delayMs", cfg.StartupDelay))
		if utils.ContextSleep(ctx, time.Duration(cfg.StartupDelay)*time.Millisecond) == utils.SleepCancelled {
			return nil
		}
	}

	server := startMetricsServer(cfg.Metrics.ListenAddress, app.Logger)

	var wg conc.WaitGroup
	for _, workerType := range workerTypes {
		workerLogger := app.LogManager.GetWorkerLogger(workerType + "_worker")

		var w interface{ Start(ctx context.Context) }
		switch workerType {
		case HeuristicsWorker:
			w = worker.NewHeuristicsWorker(
				app.Heuristics, app.StatusClient,
				time.Duration(cfg.Heuristics.Interval)*time.Minute, workerLogger,
			)
		case RecomputeWorker:
			w = worker.NewRecomputeWorker(
				app.Recomputer, app.StatusClient,
				app.Config.Common.TrustGraph.RecomputeThrottle(), workerLogger,
			)
		default:
			return fmt.Errorf("invalid worker type: %s", workerType)
		}

		wg.Go(func() {
			runWorker(ctx, w, workerLogger)
		})
	}

	log.Printf("Started %d workers", len(workerTypes))
	wg.Wait()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.Logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
	}

	log.Println("All workers have finished. Exiting.")
	return nil
}

// runWorker runs a single worker in a loop with error recovery.
func runWorker(ctx context.Context, w interface{ Start(ctx context.Context) }, logger *zap.Logger) {
	for {
		if utils.ContextGuard(ctx) {
			logger.Info("Context cancelled, stopping worker")
			return
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Worker execution failed",
						zap.String("worker_type", fmt.Sprintf("%T", w)),
						zap.Any("panic", r),
					)
				}
			}()

			logger.Info("Starting worker")
			w.Start(ctx)
		}()

		if utils.ContextGuard(ctx) {
			return
		}

		logger.Warn("Worker stopped unexpectedly, restarting in 5 seconds",
			zap.String("worker_type", fmt.Sprintf("%T", w)),
		)
		if utils.ContextSleep(ctx, 5*time.Second) == utils.SleepCancelled {
			return
		}
	}
}

// startMetricsServer exposes the Prometheus registry when an address is configured.
func startMetricsServer(addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}
