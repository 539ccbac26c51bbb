package logging

import (
	"context"
	"log/slog"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// SyslogIdentifier tags every journal entry written by this process.
const SyslogIdentifier = "rpirtspd"

// JournalHandler writes records to the systemd journal. Attributes become
// upper-case journal fields, so `journalctl MODULE=control STREAM=main`
// filters on them directly.
type JournalHandler struct {
	level  slog.Leveler
	fields map[string]string // rendered from WithAttrs
	prefix string            // open groups, joined with '_'
}

// NewJournalHandler returns a journal handler gated at level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, fields: map[string]string{}}
}

// IsJournalAvailable reports whether the journald socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}

// Enabled implements slog.Handler.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := maps.Clone(h.fields)
	fields["SYSLOG_IDENTIFIER"] = SyslogIdentifier
	r.Attrs(func(a slog.Attr) bool {
		putField(fields, h.prefix, a)
		return true
	})
	return journal.Send(r.Message, journalPriority(r.Level), fields)
}

// WithAttrs implements slog.Handler.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &JournalHandler{level: h.level, fields: maps.Clone(h.fields), prefix: h.prefix}
	for _, a := range attrs {
		putField(next.fields, h.prefix, a)
	}
	return next
}

// WithGroup implements slog.Handler.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, fields: h.fields, prefix: fieldName(h.prefix, name)}
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

func fieldName(prefix, key string) string {
	key = strings.ToUpper(strings.NewReplacer("-", "_", ".", "_", " ", "_").Replace(key))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}

func putField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	name := fieldName(prefix, a.Key)

	v := a.Value
	switch v.Kind() {
	case slog.KindGroup:
		if a.Key == "" {
			name = prefix
		}
		for _, ga := range v.Group() {
			putField(fields, name, ga)
		}
	case slog.KindInt64:
		fields[name] = strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		fields[name] = strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		fields[name] = strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindBool:
		fields[name] = strconv.FormatBool(v.Bool())
	case slog.KindTime:
		fields[name] = v.Time().Format(time.RFC3339Nano)
	default:
		fields[name] = v.String()
	}
}
