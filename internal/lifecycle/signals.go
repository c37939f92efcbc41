package lifecycle

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/smazurov/logd/internal/config"
)

// DefaultSignals are the bindings used when the config lists none.
var DefaultSignals = map[Transition][]string{
	Exit:    {"SIGTERM", "SIGINT"},
	Reload:  {"SIGHUP"},
	Restart: {"SIGUSR2"},
}

// ParseSignal accepts TERM, SIGTERM, sigterm or a signal number.
func ParseSignal(name string) (os.Signal, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	var sig syscall.Signal
	if n, err := strconv.Atoi(name); err == nil && n > 0 {
		sig = syscall.Signal(n)
	} else {
		if !strings.HasPrefix(name, "SIG") {
			name = "SIG" + name
		}
		sig = unix.SignalNum(name)
	}
	if sig == 0 {
		return nil, newError(ErrCodeUnknownSignal, "unknown signal "+name, nil)
	}
	if sig == unix.SIGKILL || sig == unix.SIGSTOP {
		return nil, newError(ErrCodeUnknownSignal, name+" cannot be caught", nil)
	}
	return sig, nil
}

// SignalTable maps configured signal names to transitions. Empty lists
// use DefaultSignals. A signal bound to two transitions is an error.
func SignalTable(cfg config.Signals) (map[os.Signal]Transition, error) {
	lists := map[Transition][]string{
		Exit:    cfg.Exit,
		Reload:  cfg.Reload,
		Restart: cfg.Restart,
	}

	table := make(map[os.Signal]Transition)
	for _, t := range []Transition{Exit, Reload, Restart} {
		names := lists[t]
		if len(names) == 0 {
			names = DefaultSignals[t]
		}
		for _, name := range names {
			sig, err := ParseSignal(name)
			if err != nil {
				return nil, err
			}
			if prev, ok := table[sig]; ok && prev != t {
				return nil, newError(ErrCodeConflictingSignal,
					fmt.Sprintf("%s bound to both %s and %s", name, prev, t), nil)
			}
			table[sig] = t
		}
	}
	return table, nil
}
