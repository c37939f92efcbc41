package sink

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
)

// DefaultType is used when a destination names no sink type.
const DefaultType = "file"

// Constructor opens a sink of one type.
type Constructor func(target, options string) (Sink, error)

var (
	globalMu           sync.RWMutex
	globalConstructors = map[string]Constructor{
		"file": func(target, options string) (Sink, error) {
			return OpenFile(target, options)
		},
		"zstd": func(target, options string) (Sink, error) {
			return OpenZstd(target, options)
		},
		"journal": func(target, options string) (Sink, error) {
			return OpenJournal(target, options)
		},
	}
)

// Register adds a sink type to the process-wide table consulted by every
// Resolver. Registering an existing name replaces it.
func Register(typeName string, ctor Constructor) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalConstructors[strings.ToLower(typeName)] = ctor
}

// Types lists the registered sink type names, sorted.
func Types() []string {
	globalMu.RLock()
	defer globalMu.RUnlock()
	names := make([]string, 0, len(globalConstructors))
	for name := range globalConstructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolver turns destination descriptions into open sinks.
type Resolver struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	stdout       *Console
	stderr       *Console
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConsoles replaces the console streams, mainly for tests.
func WithConsoles(stdout, stderr io.Writer) ResolverOption {
	return func(r *Resolver) {
		r.stdout = NewConsole(ConsoleStdout, stdout)
		r.stderr = NewConsole(ConsoleStderr, stderr)
	}
}

// WithType registers a sink type on this resolver only.
func WithType(typeName string, ctor Constructor) ResolverOption {
	return func(r *Resolver) {
		r.constructors[strings.ToLower(typeName)] = ctor
	}
}

// NewResolver creates a resolver backed by the process-wide type table
// and the process console singletons.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		constructors: make(map[string]Constructor),
		stdout:       Stdout,
		stderr:       Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stdout returns the console this resolver hands out for STDOUT.
func (r *Resolver) Stdout() *Console { return r.stdout }

// Stderr returns the console this resolver hands out for STDERR.
func (r *Resolver) Stderr() *Console { return r.stderr }

func (r *Resolver) constructor(typeName string) (Constructor, bool) {
	r.mu.RLock()
	ctor, ok := r.constructors[typeName]
	r.mu.RUnlock()
	if ok {
		return ctor, true
	}

	globalMu.RLock()
	defer globalMu.RUnlock()
	ctor, ok = globalConstructors[typeName]
	return ctor, ok
}

// Resolve returns a writable sink for target.
//
// STDOUT and STDERR (any case) and the os standard files map to the
// shared consoles. An existing Sink is reopened in place when it supports
// Reopen and returned as is. Anything else is opened through the
// constructor registered for sinkType, which defaults to "file".
func (r *Resolver) Resolve(target any, sinkType, options string) (Sink, error) {
	sinkType = strings.ToLower(strings.TrimSpace(sinkType))
	if sinkType == "" {
		sinkType = DefaultType
	}

	switch t := target.(type) {
	case nil:
		return nil, newDestinationError(ErrCodeInvalidTarget, sinkType, "", errors.New("no target"))
	case *Console:
		return t, nil
	case Sink:
		if ro, ok := t.(Reopener); ok {
			if err := ro.Reopen(); err != nil {
				var destErr *DestinationError
				if errors.As(err, &destErr) {
					return nil, destErr
				}
				return nil, newDestinationError(ErrCodeReopenFailed, sinkType, t.Name(), err)
			}
		}
		return t, nil
	case *os.File:
		switch t {
		case os.Stdout:
			return r.stdout, nil
		case os.Stderr:
			return r.stderr, nil
		}
		return r.open(t.Name(), sinkType, options)
	case string:
		name := strings.TrimSpace(t)
		switch {
		case strings.EqualFold(name, ConsoleStdout):
			return r.stdout, nil
		case strings.EqualFold(name, ConsoleStderr):
			return r.stderr, nil
		case name == "" && sinkType != "journal":
			return nil, newDestinationError(ErrCodeInvalidTarget, sinkType, t, errors.New("empty target"))
		}
		return r.open(name, sinkType, options)
	default:
		return nil, newDestinationError(ErrCodeInvalidTarget, sinkType, fmt.Sprint(target),
			fmt.Errorf("unsupported target type %T", target))
	}
}

// Types lists the sink types this resolver can open: the process-wide
// table plus its own WithType additions, sorted.
func (r *Resolver) Types() []string {
	names := Types()
	r.mu.RLock()
	for name := range r.constructors {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

func (r *Resolver) open(target, sinkType, options string) (Sink, error) {
	ctor, ok := r.constructor(sinkType)
	if !ok {
		return nil, newDestinationError(ErrCodeUnknownType, sinkType, target,
			fmt.Errorf("known types: %s", strings.Join(r.Types(), ", ")))
	}

	s, err := ctor(target, options)
	if err != nil {
		var destErr *DestinationError
		if errors.As(err, &destErr) {
			return nil, destErr
		}
		return nil, newDestinationError(ErrCodeOpenFailed, sinkType, target, err)
	}
	return s, nil
}
