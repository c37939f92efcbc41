package nats

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// RandomPort asks the embedded server to pick a free port.
const RandomPort = server.RANDOM_PORT

// DefaultMaxPayload bounds one ingest message, a single entry or a batch.
const DefaultMaxPayload = 1 << 20

const readyTimeout = 5 * time.Second

// ServerOptions configures the embedded NATS server.
type ServerOptions struct {
	Port       int
	Host       string
	Name       string
	MaxPayload int32
	Logger     *slog.Logger
}

// Server is the ingest listener of the daemon: an embedded NATS server
// bound to the configured host and port.
type Server struct {
	mu     sync.Mutex
	ns     *server.Server
	opts   ServerOptions
	logger *slog.Logger
}

// NewServer creates a new embedded NATS server bound to the daemon's
// host and port.
func NewServer(opts ServerOptions) *Server {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Name == "" {
		opts.Name = "logd"
	}
	if opts.MaxPayload <= 0 {
		opts.MaxPayload = DefaultMaxPayload
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		opts:   opts,
		logger: logger.With("component", "nats-server"),
	}
}

// Start starts the embedded NATS server and waits for it to be ready.
func (s *Server) Start() error {
	if s.opts.Port == 0 {
		return fmt.Errorf("NATS server needs a port")
	}

	ns, err := server.NewServer(&server.Options{
		Host:       s.opts.Host,
		Port:       s.opts.Port,
		ServerName: s.opts.Name,
		// Signals belong to the lifecycle controller.
		NoSigs:         true,
		MaxControlLine: 4096,
		MaxPayload:     s.opts.MaxPayload,
	})
	if err != nil {
		return fmt.Errorf("failed to create NATS server: %w", err)
	}
	ns.SetLogger(&serverLog{logger: s.logger}, false, false)

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return fmt.Errorf("NATS server not ready on %s:%d within %s", s.opts.Host, s.opts.Port, readyTimeout)
	}

	s.mu.Lock()
	s.ns = ns
	s.mu.Unlock()
	s.logger.Info("NATS server started", "url", ns.ClientURL())
	return nil
}

// Stop shuts the server down and waits for it. Safe to call twice.
func (s *Server) Stop() {
	s.mu.Lock()
	ns := s.ns
	s.ns = nil
	s.mu.Unlock()

	if ns == nil {
		return
	}
	s.logger.Info("Stopping NATS server")
	ns.Shutdown()
	ns.WaitForShutdown()
}

// ClientURL returns the URL clients should use to connect.
func (s *Server) ClientURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ns == nil {
		return fmt.Sprintf("nats://%s:%d", s.opts.Host, s.opts.Port)
	}
	return s.ns.ClientURL()
}

// IsRunning returns true if the server is running and accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ns != nil && s.ns.Running()
}

// NumClients returns the number of connected clients.
func (s *Server) NumClients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ns == nil {
		return 0
	}
	return s.ns.NumClients()
}

// serverLog forwards the embedded server's own messages to slog.
type serverLog struct {
	logger *slog.Logger
}

func (l *serverLog) Noticef(format string, v ...any) { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l *serverLog) Warnf(format string, v ...any)   { l.logger.Warn(fmt.Sprintf(format, v...)) }
func (l *serverLog) Fatalf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l *serverLog) Errorf(format string, v ...any)  { l.logger.Error(fmt.Sprintf(format, v...)) }
func (l *serverLog) Debugf(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
func (l *serverLog) Tracef(format string, v ...any)  { l.logger.Debug(fmt.Sprintf(format, v...)) }
