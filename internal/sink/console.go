package sink

import (
	"io"
	"os"
	"sync"
)

// Console names accepted as targets, case-insensitively.
const (
	ConsoleStdout = "STDOUT"
	ConsoleStderr = "STDERR"
)

// Console is a shared standard stream. Close is a no-op so cleanup code
// can treat it like any other sink.
type Console struct {
	name string
	mu   sync.Mutex
	w    io.Writer
}

// Process-wide console singletons.
var (
	Stdout = NewConsole(ConsoleStdout, os.Stdout)
	Stderr = NewConsole(ConsoleStderr, os.Stderr)
)

// NewConsole wraps w as a console sink.
func NewConsole(name string, w io.Writer) *Console {
	return &Console{name: name, w: w}
}

// Write serializes writers sharing the stream.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write(p)
}

// Sync is a no-op: standard streams are unbuffered and fsync on a
// terminal or pipe fails with EINVAL.
func (c *Console) Sync() error {
	return nil
}

// Close never closes the underlying stream.
func (c *Console) Close() error {
	return nil
}

// Name returns STDOUT or STDERR.
func (c *Console) Name() string {
	return c.name
}

// IsConsole reports whether s is a console stream.
func IsConsole(s Sink) bool {
	_, ok := s.(*Console)
	return ok
}
