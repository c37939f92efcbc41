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

// Identifier is the SYSLOG_IDENTIFIER of the daemon's own journal records.
const Identifier = "logd"

// JournalHandler sends diagnostics to the systemd journal. Attributes
// become upper-case journal fields; groups are joined with underscores.
type JournalHandler struct {
	level  slog.Leveler
	fields map[string]string
	prefix string
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{
		level:  level,
		fields: map[string]string{"SYSLOG_IDENTIFIER": Identifier},
	}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := maps.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		addJournalField(fields, h.prefix, a)
		return true
	})
	return journal.Send(r.Message, journalPriority(r.Level), fields)
}

// WithAttrs renders attrs once so Handle only copies the map.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := maps.Clone(h.fields)
	for _, a := range attrs {
		addJournalField(fields, h.prefix, a)
	}
	return &JournalHandler{level: h.level, fields: fields, prefix: h.prefix}
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	key := journalKey(name)
	if key == "" {
		return h
	}
	return &JournalHandler{level: h.level, fields: h.fields, prefix: h.prefix + key + "_"}
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

func addJournalField(fields map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		if key := journalKey(a.Key); key != "" {
			prefix += key + "_"
		}
		for _, ga := range a.Value.Group() {
			addJournalField(fields, prefix, ga)
		}
		return
	}

	key := prefix + journalKey(a.Key)
	if key == "" {
		return
	}
	switch a.Value.Kind() {
	case slog.KindTime:
		fields[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindFloat64:
		fields[key] = strconv.FormatFloat(a.Value.Float64(), 'g', -1, 64)
	default:
		fields[key] = a.Value.String()
	}
}

// journalKey maps an attribute key to a valid journal field name:
// upper case ASCII letters, digits and underscores, not starting with an
// underscore, which journald reserves for trusted fields.
func journalKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.TrimLeft(b.String(), "_")
}

// IsJournalAvailable checks if systemd journal is available.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
