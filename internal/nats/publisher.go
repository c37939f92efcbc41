package nats

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher sends entries to a running daemon.
type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewPublisher connects to the daemon at url.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(url,
		nats.Name("logd-send"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(5),
	)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		conn:   conn,
		logger: logger.With("component", "nats-publisher"),
	}, nil
}

// Publish sends each entry on its service subject and waits until the
// server has them.
func (p *Publisher) Publish(entries ...EntryMessage) error {
	for _, e := range entries {
		data, err := e.Marshal()
		if err != nil {
			return err
		}
		if err := p.conn.Publish(SubjectLogs(e.Service), data); err != nil {
			return err
		}
	}
	if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
		return err
	}
	p.logger.Debug("Published entries", "count", len(entries))
	return nil
}

// Close closes the publisher connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
