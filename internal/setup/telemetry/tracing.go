package telemetry

import (
	"context"
	"fmt"

	"github.com/barazo-forum/barazo-api-sub002/internal/setup/config"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"
)

// SetupTracing configures the uptrace exporter when a DSN is present and
// returns the matching shutdown function. Without a DSN the global no-op
// tracer provider stays in place.
func SetupTracing(cfg *config.Telemetry, serviceType ServiceType, log *zap.Logger) func(context.Context) error {
	if cfg.UptraceDSN == "" {
		return func(context.Context) error { return nil }
	}

	name := cfg.ServiceName
	if name == "" {
		name = "trustgate"
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(fmt.Sprintf("%s-%s", name, serviceType)),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
	)
	log.Info("Tracing export enabled", zap.String("service", name))

	return func(ctx context.Context) error {
		return uptrace.Shutdown(ctx)
	}
}
