// Package routing builds the routing table that maps services to a
// severity filter and an open destination.
package routing

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/smazurov/logd/internal/config"
	"github.com/smazurov/logd/internal/severity"
	"github.com/smazurov/logd/internal/sink"
)

// DefaultService is the key of the route every registry carries.
const DefaultService = "default"

// Route binds one service to its filter and destination.
type Route struct {
	Service     string
	Levels      severity.Table
	Destination sink.Sink
	Target      any
	Cull        any
	Type        string
	Options     string
	// Fallback is set when the configured destination could not be opened
	// and Destination is the default sink instead.
	Fallback bool
}

// Enabled reports whether entries at level pass this route's filter.
func (r *Route) Enabled(level string) bool {
	return r.Levels.Enabled(level)
}

// Fallback records a route that was redirected to the default sink.
type Fallback struct {
	Service string
	Err     error
}

// Registry is the immutable routing table built from one Config.
type Registry struct {
	routes       map[string]*Route
	destinations []sink.Sink
	handles      map[destKey]sink.Sink
	fallbacks    []Fallback
}

type destKey struct {
	sinkType string
	target   string
	options  string
}

func keyFor(sinkType string, target any, options string) (destKey, bool) {
	s, ok := target.(string)
	if !ok {
		return destKey{}, false
	}
	return destKey{
		sinkType: strings.ToLower(strings.TrimSpace(sinkType)),
		target:   strings.TrimSpace(s),
		options:  strings.ToLower(strings.TrimSpace(options)),
	}, true
}

// BuildOption configures Build.
type BuildOption func(*builder)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *slog.Logger) BuildOption {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithPrevious lets Build reuse the destinations of the registry being
// replaced. A destination with the same type, target and options is
// reopened in place instead of opened again.
func WithPrevious(previous *Registry) BuildOption {
	return func(b *builder) {
		b.previous = previous
	}
}

// WithoutReopen makes Build carry the given handles of the previous
// registry over as they are, without reopening them. It is meant for
// destinations still stuck in a write.
func WithoutReopen(dests ...sink.Sink) BuildOption {
	return func(b *builder) {
		for _, dest := range dests {
			b.keep[dest] = true
		}
	}
}

type builder struct {
	resolver *sink.Resolver
	logger   *slog.Logger
	previous *Registry
	keep     map[sink.Sink]bool
	reg      *Registry
}

// Build validates cfg and resolves every route.
//
// Each [[logs]] entry is resolved once and fanned out to all of its
// services, so they share one destination. Later entries override earlier
// ones for the same service. The "default" route is always installed last
// and points at cfg.DefaultLog with the process-wide levels.
//
// A route whose destination cannot be opened falls back to the default
// sink and is reported by Fallbacks. Failing to open the default sink
// itself is an error.
func Build(cfg *config.Config, resolver *sink.Resolver, opts ...BuildOption) (*Registry, error) {
	if _, err := cfg.PortNumber(); err != nil {
		return nil, err
	}

	b := &builder{
		resolver: resolver,
		logger:   slog.Default(),
		keep:     make(map[sink.Sink]bool),
		reg: &Registry{
			routes:  make(map[string]*Route),
			handles: make(map[destKey]sink.Sink),
		},
	}
	for _, opt := range opts {
		opt(b)
	}

	processLevels, err := severity.Normalize(cfg.Levels)
	if err != nil {
		return nil, err
	}

	// Validate every entry before opening anything.
	type pendingRoute struct {
		route    Route
		services []string
	}
	pending := make([]pendingRoute, 0, len(cfg.Logs))
	for i, lc := range cfg.Logs {
		services, err := lc.Services()
		if err != nil {
			return nil, config.NewConfigError(config.ErrCodeInvalidService, fmt.Sprintf("logs[%d]", i), err)
		}

		levels := processLevels
		if lc.Levels != nil {
			levels, err = severity.Normalize(lc.Levels)
			if err != nil {
				return nil, err
			}
		}

		pending = append(pending, pendingRoute{
			services: services,
			route: Route{
				Levels:  levels,
				Target:  lc.Logfile,
				Cull:    lc.Cull,
				Type:    cmp.Or(strings.TrimSpace(lc.Type), config.DefaultSinkType),
				Options: cmp.Or(strings.TrimSpace(lc.Options), config.DefaultSinkOptions),
			},
		})
	}

	defaultLog := strings.TrimSpace(cfg.DefaultLog)
	if defaultLog == "" {
		defaultLog = config.DefaultLog
	}
	defaultSink, err := b.resolve(defaultLog, config.DefaultSinkType, config.DefaultSinkOptions)
	if err != nil {
		return nil, fmt.Errorf("default log %q: %w", defaultLog, err)
	}

	for _, p := range pending {
		route := p.route
		if route.Target == nil {
			route.Destination = defaultSink
		} else {
			dest, err := b.resolve(route.Target, route.Type, route.Options)
			if err != nil {
				b.logger.Error("Destination unavailable, using default log",
					"services", p.services, "target", route.Target, "type", route.Type, "error", err)
				route.Destination = defaultSink
				route.Fallback = true
				for _, service := range p.services {
					b.reg.fallbacks = append(b.reg.fallbacks, Fallback{Service: service, Err: err})
				}
			} else {
				route.Destination = dest
			}
		}

		for _, service := range p.services {
			r := route
			r.Service = service
			b.reg.routes[service] = &r
		}
	}

	b.reg.routes[DefaultService] = &Route{
		Service:     DefaultService,
		Levels:      processLevels,
		Destination: defaultSink,
		Target:      defaultLog,
		Type:        config.DefaultSinkType,
		Options:     config.DefaultSinkOptions,
	}

	b.reg.collectDestinations()
	return b.reg, nil
}

// resolve opens target once per build. Handles carried over from the
// previous registry are reopened instead of opened again.
func (b *builder) resolve(target any, sinkType, options string) (sink.Sink, error) {
	key, keyed := keyFor(sinkType, target, options)
	if keyed {
		if s, ok := b.reg.handles[key]; ok {
			return s, nil
		}
	}

	resolveTarget := target
	if keyed && b.previous != nil {
		if prev, ok := b.previous.handles[key]; ok {
			if b.keep[prev] {
				b.reg.handles[key] = prev
				return prev, nil
			}
			resolveTarget = prev
		}
	}

	s, err := b.resolver.Resolve(resolveTarget, sinkType, options)
	if err != nil {
		return nil, err
	}
	if keyed {
		b.reg.handles[key] = s
	}
	return s, nil
}

func (r *Registry) collectDestinations() {
	seen := make(map[sink.Sink]bool)
	for _, route := range r.Routes() {
		if !seen[route.Destination] {
			seen[route.Destination] = true
			r.destinations = append(r.destinations, route.Destination)
		}
	}
}

// RouteFor returns the route registered for service. It does not fall
// back to the default route.
func (r *Registry) RouteFor(service string) (*Route, bool) {
	route, ok := r.routes[service]
	return route, ok
}

// Default returns the default route.
func (r *Registry) Default() *Route {
	return r.routes[DefaultService]
}

// Routes returns all routes sorted by service name.
func (r *Registry) Routes() []*Route {
	routes := make([]*Route, 0, len(r.routes))
	for _, route := range r.routes {
		routes = append(routes, route)
	}
	slices.SortFunc(routes, func(a, b *Route) int {
		return cmp.Compare(a.Service, b.Service)
	})
	return routes
}

// Len returns the number of routes, including the default route.
func (r *Registry) Len() int {
	return len(r.routes)
}

// Destinations returns each distinct destination once.
func (r *Registry) Destinations() []sink.Sink {
	return slices.Clone(r.destinations)
}

// Fallbacks lists routes whose destination could not be opened.
func (r *Registry) Fallbacks() []Fallback {
	return slices.Clone(r.fallbacks)
}

// Reopen reopens every destination that supports it, except those in
// skip, and returns one error per destination that failed.
func (r *Registry) Reopen(skip ...sink.Sink) []error {
	var errs []error
	for _, dest := range r.destinations {
		ro, ok := dest.(sink.Reopener)
		if !ok || slices.Contains(skip, dest) {
			continue
		}
		if err := ro.Reopen(); err != nil {
			errs = append(errs, fmt.Errorf("reopen %s: %w", dest.Name(), err))
		}
	}
	return errs
}

// Orphans returns the non-console destinations of old that current no
// longer uses.
func Orphans(old, current *Registry) []sink.Sink {
	if old == nil {
		return nil
	}
	inUse := make(map[sink.Sink]bool)
	if current != nil {
		for _, dest := range current.destinations {
			inUse[dest] = true
		}
	}
	var out []sink.Sink
	for _, dest := range old.destinations {
		if !inUse[dest] && !sink.IsConsole(dest) {
			out = append(out, dest)
		}
	}
	return out
}
