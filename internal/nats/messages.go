package nats

import (
	"encoding/json"
	"strings"
)

// Subject prefixes for NATS messaging.
const (
	SubjectPrefix     = "logd"
	SubjectLogsPrefix = SubjectPrefix + ".logs"
)

// SubjectLogs returns the subject entries for service are published on.
func SubjectLogs(service string) string {
	return SubjectLogsPrefix + "." + service
}

// ServiceFromSubject returns the last token of subject.
func ServiceFromSubject(subject string) string {
	if i := strings.LastIndexByte(subject, '.'); i >= 0 {
		return subject[i+1:]
	}
	return subject
}

// EntryMessage is one log entry on the wire.
type EntryMessage struct {
	Service  string `json:"service"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// Marshal serializes the message to JSON.
func (m EntryMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}
