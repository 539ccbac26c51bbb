package logging

import (
	"context"
	"log/slog"
	"maps"
	"time"
)

// LogCallback receives each entry after it is added to the history.
// main uses it to publish log events on the bus without an import cycle.
type LogCallback func(entry LogEntry)

// BufferHandler feeds the history and the registered LogCallback. Both are
// looked up per record, so handlers built before Initialize start
// recording once it runs.
type BufferHandler struct {
	level  slog.Leveler
	module string
	attrs  map[string]any // flattened from WithAttrs
	prefix string         // open groups, joined with '.'
}

// NewBufferHandler returns a buffer handler gated at level.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level, module: "app", attrs: map[string]any{}}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelName(r.Level),
		Module:     h.module,
		Message:    r.Message,
		Attributes: maps.Clone(h.attrs),
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "module" && h.prefix == "" {
			entry.Module = a.Value.String()
		} else {
			flattenAttr(entry.Attributes, h.prefix, a)
		}
		return true
	})
	if len(entry.Attributes) == 0 {
		entry.Attributes = nil
	}

	mutex.RLock()
	buf, callback := history, logCallback
	mutex.RUnlock()

	if buf != nil {
		entry.Seq = buf.Append(entry)
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &BufferHandler{level: h.level, module: h.module, attrs: maps.Clone(h.attrs), prefix: h.prefix}
	for _, a := range attrs {
		if a.Key == "module" && h.prefix == "" {
			next.module = a.Value.String()
			continue
		}
		flattenAttr(next.attrs, h.prefix, a)
	}
	return next
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &BufferHandler{level: h.level, module: h.module, attrs: h.attrs, prefix: dotted(h.prefix, name)}
}

func dotted(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// flattenAttr stores a under its dotted key, expanding groups.
func flattenAttr(attrs map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := dotted(prefix, a.Key)

	switch a.Value.Kind() {
	case slog.KindGroup:
		if a.Key == "" {
			key = prefix
		}
		for _, ga := range a.Value.Group() {
			flattenAttr(attrs, key, ga)
		}
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
		} else {
			attrs[key] = a.Value.Any()
		}
	default:
		attrs[key] = a.Value.Any()
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}
