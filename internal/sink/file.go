package sink

import (
	"fmt"
	"os"
	"sync"
)

// File is a plain file sink. Writes go straight to the descriptor and
// land in the page cache; Sync calls fsync.
type File struct {
	path string
	opts openOptions

	mu     sync.Mutex
	f      *os.File
	closed bool
}

// OpenFile opens path according to options. The parent directory must exist.
func OpenFile(path, options string) (*File, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, newDestinationError(ErrCodeInvalidOptions, "file", path, err)
	}
	if len(opts.params) > 0 {
		return nil, newDestinationError(ErrCodeInvalidOptions, "file", path, fmt.Errorf("unsupported options %v", opts.params))
	}

	f, err := os.OpenFile(path, opts.flags(true), opts.perm)
	if err != nil {
		return nil, newDestinationError(ErrCodeOpenFailed, "file", path, err)
	}
	return &File{path: path, opts: opts, f: f}, nil
}

func (s *File) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.f.Write(p)
}

func (s *File) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	return s.f.Sync()
}

// Close is idempotent.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// Reopen closes the descriptor and opens the same path again in append mode.
// A closed sink is revived.
func (s *File) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, s.opts.flags(false), s.opts.perm)
	if err != nil {
		return newDestinationError(ErrCodeReopenFailed, "file", s.path, err)
	}
	if !s.closed {
		_ = s.f.Close()
	}
	s.f = f
	s.closed = false
	return nil
}

func (s *File) Name() string {
	return s.path
}
