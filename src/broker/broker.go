// Package broker defines the interface for message brokers and provides implementations.
package broker

import (
	"context"
	"errors"
)

// Broker abstracts message publishing.
// Implementations cover in-memory delivery, Redpanda/Kafka and NATS.
type Broker interface {
	// Publish sends a message to a topic with an optional key.
	// For Redpanda/Kafka the key drives partition assignment; NATS carries it as a header.
	Publish(ctx context.Context, topic string, key string, value []byte) error

	// Close shuts down the broker connection gracefully.
	Close() error
}

// Subscriber is implemented by brokers that can deliver messages in-process.
type Subscriber interface {
	// Subscribe returns a channel for consuming messages from a topic.
	Subscribe(ctx context.Context, topic string, groupID string) (<-chan Message, error)
}

// Message represents a consumed message from a broker.
type Message struct {
	Topic     string
	Key       string
	Value     []byte
	Timestamp int64
}

// Multi publishes every message to all of its brokers.
type Multi []Broker

// Publish sends the message to each broker and joins their errors.
func (m Multi) Publish(ctx context.Context, topic string, key string, value []byte) error {
	var errs []error
	for _, b := range m {
		if err := b.Publish(ctx, topic, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes each broker and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, b := range m {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
