package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Core is a zapcore.Core that records error entries as OpenTelemetry spans.
type Core struct {
	zapcore.LevelEnabler
	tracer    trace.Tracer
	component string
	fields    []zapcore.Field
}

// NewCore creates a core forwarding entries at or above enab to the global tracer provider.
func NewCore(enab zapcore.LevelEnabler, component string) zapcore.Core {
	return &Core{
		LevelEnabler: enab,
		tracer:       otel.Tracer("trustgate/logs"),
		component:    component,
	}
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field{}, c.fields...), fields...)
	return &clone
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	_, span := c.tracer.Start(context.Background(), "error."+errorCategory(ent))
	defer span.End()

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}

	attrs := make([]attribute.KeyValue, 0, len(enc.Fields)+5)
	attrs = append(attrs,
		attribute.String("log.message", ent.Message),
		attribute.String("log.level", ent.Level.String()),
		attribute.String("log.caller", ent.Caller.TrimmedPath()),
		attribute.String("log.logger", ent.LoggerName),
		attribute.String("service.component", c.component),
	)
	for k, v := range enc.Fields {
		attrs = append(attrs, attribute.String("log.field."+k, stringify(v)))
	}

	span.SetAttributes(attrs...)
	span.SetStatus(codes.Error, ent.Message)
	return nil
}

func (c *Core) Sync() error {
	return nil
}

// errorCategory derives a span name suffix from the calling package.
func errorCategory(ent zapcore.Entry) string {
	fn := ent.Caller.Function
	for _, category := range []string{
		"database", "redis", "ratewindow", "antispam", "moderation",
		"heuristics", "sybil", "reputation", "trustgraph", "worker", "setup",
	} {
		if strings.Contains(fn, "/"+category) {
			return category
		}
	}
	return "application"
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	case interface{ String() string }:
		return t.String()
	default:
		return strings.TrimSpace(strings.ReplaceAll(fmt.Sprint(v), "\n", " "))
	}
}
