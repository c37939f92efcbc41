package nats

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/smazurov/logd/internal/metrics"
)

// Submitter accepts decoded entries. engine.Engine satisfies it.
type Submitter interface {
	Submit(service, severity, message string)
}

// Bridge subscribes to entry subjects and submits what it decodes.
type Bridge struct {
	url       string
	submitter Submitter
	decoder   Decoder
	conn      *nats.Conn
	sub       *nats.Subscription
	closed    chan struct{}
	logger    *slog.Logger
	mu        sync.Mutex
}

// NewBridge creates a new NATS-to-engine bridge.
func NewBridge(url string, submitter Submitter, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:       url,
		submitter: submitter,
		logger:    logger.With("component", "nats-bridge"),
	}
}

// Start connects to NATS and subscribes to every service subject.
func (b *Bridge) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	closed := make(chan struct{})
	conn, err := nats.Connect(b.url,
		nats.Name("logd-bridge"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.logger.Warn("NATS bridge disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			b.logger.Info("NATS bridge reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			close(closed)
		}),
	)
	if err != nil {
		return err
	}

	sub, err := conn.Subscribe(SubjectLogsPrefix+".>", b.handleEntries)
	if err != nil {
		conn.Close()
		return err
	}
	// The subscription is live on the server once Start returns.
	if err := conn.Flush(); err != nil {
		conn.Close()
		return err
	}

	b.conn = conn
	b.sub = sub
	b.closed = closed
	b.logger.Info("NATS bridge subscribed", "subject", sub.Subject)
	return nil
}

// handleEntries decodes a payload and submits each entry.
func (b *Bridge) handleEntries(msg *nats.Msg) {
	entries, skipped, err := b.decoder.Decode(msg.Data, ServiceFromSubject(msg.Subject))
	if err != nil {
		metrics.MalformedPayload("nats")
		b.logger.Warn("Dropping malformed payload", "subject", msg.Subject, "error", err)
		return
	}
	for range skipped {
		metrics.MalformedPayload("nats")
	}
	if skipped > 0 {
		b.logger.Warn("Dropped malformed entries from batch", "subject", msg.Subject, "skipped", skipped)
	}

	for _, e := range entries {
		b.submitter.Submit(e.Service, e.Severity, e.Message)
	}
}

// Stop drains the subscription so every message already received is
// submitted, then closes the connection.
func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	conn, closed := b.conn, b.closed
	b.conn, b.sub = nil, nil
	b.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return err
	}

	select {
	case <-closed:
		b.logger.Info("NATS bridge stopped")
		return nil
	case <-ctx.Done():
		conn.Close()
		return errors.Join(errors.New("NATS bridge drain timed out"), ctx.Err())
	}
}

// IsConnected returns true if the bridge is connected to NATS.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && b.conn.IsConnected()
}
