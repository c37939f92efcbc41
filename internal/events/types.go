package events

// Event type constants for kelindar/event.
const (
	TypeStateChanged uint32 = iota + 1
	TypeReloaded
	TypeWriteError
	TypeDiagnostic
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StateChangedEvent is published on every lifecycle transition.
type StateChangedEvent struct {
	From      string `json:"from" example:"RUNNING" doc:"Previous lifecycle state"`
	To        string `json:"to" example:"DRAINING_FOR_RELOAD" doc:"New lifecycle state"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Transition timestamp"`
}

// Type returns the event type identifier for StateChangedEvent.
func (e StateChangedEvent) Type() uint32 { return TypeStateChanged }

// ReloadedEvent is published after a reload finished, successfully or not.
type ReloadedEvent struct {
	Routes    int    `json:"routes" example:"4" doc:"Routes in the active registry"`
	Fallbacks int    `json:"fallbacks" example:"0" doc:"Routes redirected to the default log"`
	Reopened  int    `json:"reopened" example:"3" doc:"Destinations reopened in place"`
	Closed    int    `json:"closed" example:"1" doc:"Destinations closed because no route uses them"`
	Error     string `json:"error,omitempty" doc:"Config error that kept the previous registry"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Reload timestamp"`
}

// Type returns the event type identifier for ReloadedEvent.
func (e ReloadedEvent) Type() uint32 { return TypeReloaded }

// WriteErrorEvent is published when a destination write or sync fails.
type WriteErrorEvent struct {
	Destination string `json:"destination" example:"/var/log/auth.log" doc:"Destination name"`
	Op          string `json:"op" example:"write" doc:"Failed operation: write or sync"`
	Error       string `json:"error" doc:"Error description"`
	Pending     int    `json:"pending" example:"12" doc:"Entries kept for retry"`
	Timestamp   string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Failure timestamp"`
}

// Type returns the event type identifier for WriteErrorEvent.
func (e WriteErrorEvent) Type() uint32 { return TypeWriteError }

// DiagnosticEvent carries one of the daemon's own log records.
type DiagnosticEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"engine" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for DiagnosticEvent.
func (e DiagnosticEvent) Type() uint32 { return TypeDiagnostic }
