package sink

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// Journal forwards entries to the systemd journal with the service and
// severity attached as structured fields.
type Journal struct {
	identifier string
	send       func(message string, priority journal.Priority, vars map[string]string) error
}

// OpenJournal returns a journal sink tagged with identifier.
// It fails when journald is not reachable.
func OpenJournal(identifier, options string) (*Journal, error) {
	if strings.TrimSpace(options) != "" && !strings.EqualFold(strings.TrimSpace(options), "append") {
		return nil, newDestinationError(ErrCodeInvalidOptions, "journal", identifier, errors.New("journal sink takes no options"))
	}
	if !journal.Enabled() {
		return nil, newDestinationError(ErrCodeOpenFailed, "journal", identifier, errors.New("journald socket not available"))
	}
	if identifier == "" {
		identifier = "logd"
	}
	return &Journal{identifier: identifier, send: journal.Send}, nil
}

// WriteEntries sends each entry as its own journal record and stops at
// the first record journald refuses, so a retry never repeats a record.
func (s *Journal) WriteEntries(entries []Entry) (int, error) {
	for i, e := range entries {
		err := s.send(e.Message, Priority(e.Severity), map[string]string{
			"SYSLOG_IDENTIFIER": s.identifier,
			"LOGD_SERVICE":      e.Service,
			"LOGD_SEVERITY":     e.Severity,
		})
		if err != nil {
			return i, fmt.Errorf("journal record %d of %d: %w", i+1, len(entries), err)
		}
	}
	return len(entries), nil
}

func (s *Journal) Write(p []byte) (int, error) {
	err := s.send(strings.TrimRight(string(p), "\n"), journal.PriInfo, map[string]string{
		"SYSLOG_IDENTIFIER": s.identifier,
	})
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// Sync is a no-op, journald owns durability.
func (s *Journal) Sync() error { return nil }

func (s *Journal) Close() error { return nil }

func (s *Journal) Name() string {
	return "journal:" + s.identifier
}

// Priority maps a severity name to a journal priority.
func Priority(severity string) journal.Priority {
	switch strings.ToLower(severity) {
	case "debug", "trace":
		return journal.PriDebug
	case "notice":
		return journal.PriNotice
	case "warn", "warning":
		return journal.PriWarning
	case "error", "err":
		return journal.PriErr
	case "fatal", "crit", "critical":
		return journal.PriCrit
	case "alert":
		return journal.PriAlert
	case "emerg", "panic":
		return journal.PriEmerg
	default:
		return journal.PriInfo
	}
}
