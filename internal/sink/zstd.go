package sink

import (
	"fmt"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Zstd writes a zstd stream to a file. Each Sync ends the current block
// so the file is decodable up to the last sync; Reopen finishes the frame
// and starts a new one in the fresh file.
type Zstd struct {
	path  string
	opts  openOptions
	level zstd.EncoderLevel

	mu     sync.Mutex
	f      *os.File
	enc    *zstd.Encoder
	closed bool
}

// OpenZstd opens a compressed file sink. Options accept level=<name>.
func OpenZstd(path, options string) (*Zstd, error) {
	opts, err := parseOptions(options)
	if err != nil {
		return nil, newDestinationError(ErrCodeInvalidOptions, "zstd", path, err)
	}

	level := zstd.SpeedDefault
	for key, value := range opts.params {
		if key != "level" {
			return nil, newDestinationError(ErrCodeInvalidOptions, "zstd", path, fmt.Errorf("unknown option %q", key))
		}
		ok, l := zstd.EncoderLevelFromString(value)
		if !ok {
			return nil, newDestinationError(ErrCodeInvalidOptions, "zstd", path, fmt.Errorf("unknown level %q", value))
		}
		level = l
	}

	f, err := os.OpenFile(path, opts.flags(true), opts.perm)
	if err != nil {
		return nil, newDestinationError(ErrCodeOpenFailed, "zstd", path, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		f.Close()
		return nil, newDestinationError(ErrCodeOpenFailed, "zstd", path, err)
	}
	return &Zstd{path: path, opts: opts, level: level, f: f, enc: enc}, nil
}

func (s *Zstd) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.enc.Write(p)
}

func (s *Zstd) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return os.ErrClosed
	}
	if err := s.enc.Flush(); err != nil {
		return err
	}
	return s.f.Sync()
}

// Close finishes the frame and closes the file. It is idempotent.
func (s *Zstd) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	encErr := s.enc.Close()
	if err := s.f.Close(); err != nil {
		return err
	}
	return encErr
}

func (s *Zstd) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, s.opts.flags(false), s.opts.perm)
	if err != nil {
		return newDestinationError(ErrCodeReopenFailed, "zstd", s.path, err)
	}
	if !s.closed {
		_ = s.enc.Close()
		_ = s.f.Close()
	}
	s.enc.Reset(f)
	s.f = f
	s.closed = false
	return nil
}

func (s *Zstd) Name() string {
	return s.path
}
