package events

import (
	"context"

	"github.com/nats-io/nats.go"
)

// NATSPublisher delivers events to one NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Name() string { return "nats" }

func (p *NATSPublisher) Publish(_ context.Context, payload []byte) error {
	return p.conn.Publish(p.subject, payload)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
