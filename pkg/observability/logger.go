package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
	attrGroup   = "group"
)

type groupKey struct{}

// ContextWithGroup tags ctx with the file group being analysed. LogHandler adds it to
// every record logged with that context.
func ContextWithGroup(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, groupKey{}, name)
}

// GroupFromContext returns the file group tagged by ContextWithGroup.
func GroupFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(groupKey{}).(string)

	return name, ok && name != ""
}

// LogHandler is an [slog.Handler] that adds the OpenTelemetry trace context and the
// file group from the record's context. Service metadata is attached once at
// construction and stays top-level under WithGroup.
type LogHandler struct {
	inner slog.Handler
}

// NewLogHandler wraps inner with service metadata and per-record context attributes.
func NewLogHandler(inner slog.Handler, service, env string, appMode AppMode) *LogHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &LogHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle adds the group and trace attributes found in ctx, then delegates.
func (h *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	if name, ok := GroupFromContext(ctx); ok {
		record.AddAttrs(slog.String(attrGroup, name))
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := h.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("log handler: %w", err)
	}

	return nil
}

// WithAttrs returns a LogHandler with attrs added to the inner handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a LogHandler that nests subsequent attributes under name.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{inner: h.inner.WithGroup(name)}
}
