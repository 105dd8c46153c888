package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// NATSBroker publishes messages as core NATS messages; the topic is the subject.
type NATSBroker struct {
	conn   *nats.Conn
	mu     sync.RWMutex
	closed bool
}

// NewNATSBroker connects to the NATS server at url.
func NewNATSBroker(url string) (*NATSBroker, error) {
	conn, err := nats.Connect(url, nats.Name("monobuild"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSBroker{conn: conn}, nil
}

// Publish sends value on subject topic with key in the "Key" header and waits
// for the server to acknowledge the flush.
func (b *NATSBroker) Publish(ctx context.Context, topic string, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	msg := nats.NewMsg(topic)
	msg.Data = value
	if key != "" {
		msg.Header.Set("Key", key)
	}

	if err := b.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	if err := b.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush message: %w", err)
	}
	return nil
}

// Close drains the connection.
func (b *NATSBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	return b.conn.Drain()
}
