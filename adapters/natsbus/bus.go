// Package natsbus implements realtime.ClusterBus on NATS.
package natsbus

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/coregx/realtime"
)

// Bus is a realtime.ClusterBus backed by a NATS connection.
type Bus struct {
	conn *nats.Conn
}

// New wraps an existing NATS connection. The caller keeps ownership of the
// connection's lifecycle options; Close drains it.
func New(conn *nats.Conn) *Bus {
	return &Bus{conn: conn}
}

// Connect establishes a NATS connection and wraps it. The connection is
// named, compressed and has echo disabled, so the broker's own publishes do
// not come back through its wildcard subscription. Caller options are applied
// after the defaults and override them.
func Connect(url string, opts ...nats.Option) (*Bus, error) {
	options := append([]nats.Option{
		nats.Name("realtime"),
		nats.Compression(true),
		nats.NoEcho(),
	}, opts...)
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, realtime.NewErrorWithCause(realtime.ErrCodeCluster, "failed to connect to NATS", err)
	}
	return New(conn), nil
}

// Publish sends one payload on a subject.
func (b *Bus) Publish(_ context.Context, subject string, data []byte) error {
	if err := b.conn.Publish(subject, data); err != nil {
		return realtime.NewErrorWithCause(realtime.ErrCodeCluster, "failed to publish to NATS", err)
	}
	return nil
}

// Subscribe registers a handler for every subject matching the wildcard.
func (b *Bus) Subscribe(_ context.Context, wildcard string, handler func(subject string, data []byte)) (realtime.BusSubscription, error) {
	sub, err := b.conn.Subscribe(wildcard, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, realtime.NewErrorWithCause(realtime.ErrCodeCluster, "failed to subscribe to NATS", err)
	}
	return &subscription{sub: sub}, nil
}

// Close drains the connection, letting in-flight messages finish.
func (b *Bus) Close() error {
	if err := b.conn.Drain(); err != nil {
		return realtime.NewErrorWithCause(realtime.ErrCodeCluster, "failed to drain NATS connection", err)
	}
	return nil
}

type subscription struct {
	sub *nats.Subscription
}

func (s *subscription) Unsubscribe() error {
	if err := s.sub.Unsubscribe(); err != nil {
		return realtime.NewErrorWithCause(realtime.ErrCodeCluster, "failed to unsubscribe", err)
	}
	return nil
}
