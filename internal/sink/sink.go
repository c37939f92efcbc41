package sink

import (
	"io"
	"strings"
	"time"
)

// Sink is an open destination for formatted log entries.
// Write lands in the sink's buffer (page cache, encoder, ...);
// Sync forces everything written so far to durable storage.
type Sink interface {
	io.Writer
	Sync() error
	Close() error
	Name() string
}

// Reopener is implemented by sinks that can swap their descriptor for a
// fresh one at the same location.
type Reopener interface {
	Reopen() error
}

// EntryWriter is implemented by sinks that want structured entries
// instead of formatted lines. WriteEntries stops at the first failure and
// returns how many leading entries were delivered.
type EntryWriter interface {
	WriteEntries(entries []Entry) (int, error)
}

// Entry is one log message waiting to be written.
type Entry struct {
	Service  string
	Severity string
	Message  string
	Time     time.Time
}

// TimeFormat is the timestamp layout of formatted entries.
const TimeFormat = "2006-01-02T15:04:05.000Z07:00"

// AppendFormat appends the line form of e, newline terminated:
//
//	2024-01-01T12:00:00.000Z [ERROR] [auth] message
func (e Entry) AppendFormat(buf []byte) []byte {
	buf = e.Time.AppendFormat(buf, TimeFormat)
	buf = append(buf, " ["...)
	buf = append(buf, strings.ToUpper(e.Severity)...)
	buf = append(buf, "] ["...)
	buf = append(buf, e.Service...)
	buf = append(buf, "] "...)
	buf = append(buf, strings.TrimRight(e.Message, "\n")...)
	return append(buf, '\n')
}

// WriteBatch writes entries to s in order, preferring EntryWriter, and
// returns how many leading entries were delivered. Line-oriented sinks
// receive the whole batch in a single Write, which either lands or is
// retried as a whole.
func WriteBatch(s Sink, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	if ew, ok := s.(EntryWriter); ok {
		n, err := ew.WriteEntries(entries)
		return min(max(n, 0), len(entries)), err
	}
	buf := make([]byte, 0, 128*len(entries))
	for _, e := range entries {
		buf = e.AppendFormat(buf)
	}
	if _, err := s.Write(buf); err != nil {
		return 0, err
	}
	return len(entries), nil
}
