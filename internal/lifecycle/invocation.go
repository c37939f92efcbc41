package lifecycle

import (
	"os"
	"os/exec"
	"slices"
	"strings"

	"golang.org/x/sys/unix"
)

// ReexecEnv marks a process started by a restart transition.
const ReexecEnv = "LOGD_REEXEC"

// Invocation is the command line captured once at startup and replayed
// by the restart transition.
type Invocation struct {
	path string
	args []string
	env  []string
}

// CaptureInvocation records the current executable, arguments and
// environment.
func CaptureInvocation() (Invocation, error) {
	path, err := os.Executable()
	if err != nil {
		path, err = exec.LookPath(os.Args[0])
		if err != nil {
			return Invocation{}, err
		}
	}
	return NewInvocation(path, os.Args, os.Environ()), nil
}

// NewInvocation copies its inputs.
func NewInvocation(path string, args, env []string) Invocation {
	return Invocation{
		path: path,
		args: slices.Clone(args),
		env:  slices.Clone(env),
	}
}

// Path returns the executable path.
func (inv Invocation) Path() string { return inv.path }

// Args returns a copy of argv.
func (inv Invocation) Args() []string { return slices.Clone(inv.args) }

// ReexecEnviron returns the environment for the restarted process with
// ReexecEnv set.
func (inv Invocation) ReexecEnviron() []string {
	env := make([]string, 0, len(inv.env)+1)
	for _, kv := range inv.env {
		if !strings.HasPrefix(kv, ReexecEnv+"=") {
			env = append(env, kv)
		}
	}
	return append(env, ReexecEnv+"=1")
}

// Execer replaces the process image. It only returns on failure.
type Execer func(path string, argv, envv []string) error

// Exec is the default Execer.
func Exec(path string, argv, envv []string) error {
	return unix.Exec(path, argv, envv)
}

// IsReexec reports whether this process was started by a restart.
func IsReexec() bool {
	return os.Getenv(ReexecEnv) == "1"
}
