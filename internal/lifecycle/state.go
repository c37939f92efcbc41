package lifecycle

// State is a lifecycle controller state.
type State string

// Controller states.
const (
	StateStarting           State = "STARTING"
	StateRunning            State = "RUNNING"
	StateDrainingForExit    State = "DRAINING_FOR_EXIT"
	StateDrainingForReload  State = "DRAINING_FOR_RELOAD"
	StateDrainingForRestart State = "DRAINING_FOR_RESTART"
	StateStopped            State = "STOPPED"
)

// Transition is a request the controller acts on.
type Transition int

// Transitions.
const (
	Exit Transition = iota + 1
	Reload
	Restart
)

func (t Transition) String() string {
	switch t {
	case Exit:
		return "exit"
	case Reload:
		return "reload"
	case Restart:
		return "restart"
	default:
		return "unknown"
	}
}

// draining returns the state a transition drains in.
func (t Transition) draining() State {
	switch t {
	case Exit:
		return StateDrainingForExit
	case Reload:
		return StateDrainingForReload
	case Restart:
		return StateDrainingForRestart
	default:
		return ""
	}
}

// ParseTransition maps exit, reload and restart to a Transition.
func ParseTransition(name string) (Transition, bool) {
	switch name {
	case "exit":
		return Exit, true
	case "reload":
		return Reload, true
	case "restart":
		return Restart, true
	default:
		return 0, false
	}
}
