package observability

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// attrAction is what the filter does with one span attribute.
type attrAction int

const (
	actionDrop attrAction = iota
	actionKeep
	actionBasename
)

// keptPrefixes are the namespaces seqstat sets on its own spans.
var keptPrefixes = []string{
	"seqstat.",
	"error.",
	"http.",
	"analysis.",
	"batch.",
	"group.",
	"report.",
	"merge.",
}

// droppedKeys never leave the process even inside a kept namespace.
var droppedKeys = map[string]bool{
	"email":         true,
	"request.body":  true,
	"response.body": true,
}

// pathSuffix marks attributes holding file system paths; only their base name is exported.
const pathSuffix = ".path"

// attributeFilter is a SpanProcessor that rewrites span attributes before they reach
// the delegate: unknown keys are dropped, path values are reduced to base names.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
}

// NewAttributeFilter wraps delegate with the seqstat attribute policy. When logger is
// non-nil every dropped key is logged at warn level.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

// OnStart delegates to the wrapped processor.
func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a view with the filtered attributes.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, filter: f})
}

// Shutdown delegates to the wrapped processor.
func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

// ForceFlush delegates to the wrapped processor.
func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func classify(key string) attrAction {
	switch {
	case droppedKeys[key]:
		return actionDrop
	case key == "error":
		return actionKeep
	}

	for _, prefix := range keptPrefixes {
		if !strings.HasPrefix(key, prefix) {
			continue
		}

		if strings.HasSuffix(key, pathSuffix) {
			return actionBasename
		}

		return actionKeep
	}

	return actionDrop
}

func (f *attributeFilter) apply(kv attribute.KeyValue) (attribute.KeyValue, bool) {
	switch classify(string(kv.Key)) {
	case actionKeep:
		return kv, true
	case actionBasename:
		if kv.Value.Type() == attribute.STRING {
			return kv.Key.String(filepath.Base(kv.Value.AsString())), true
		}

		return kv, true
	default:
		if f.logger != nil {
			f.logger.Warn("attribute blocked by filter", "key", string(kv.Key))
		}

		return kv, false
	}
}

// filteredSpan is a ReadOnlySpan whose attributes went through the filter.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

// Attributes returns the kept and rewritten attributes.
func (s *filteredSpan) Attributes() []attribute.KeyValue {
	orig := s.ReadOnlySpan.Attributes()
	filtered := make([]attribute.KeyValue, 0, len(orig))

	for _, kv := range orig {
		if out, ok := s.filter.apply(kv); ok {
			filtered = append(filtered, out)
		}
	}

	return filtered
}
