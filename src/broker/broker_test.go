package broker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryBroker_PublishSubscribe(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "ci_build_events"
	key := "pkg-a"
	value := []byte(`{"type":"triggered"}`)

	msgChan, err := broker.Subscribe(ctx, topic, "watch")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	if err := broker.Publish(ctx, topic, key, value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-msgChan:
		if msg.Topic != topic {
			t.Errorf("Expected topic %s, got %s", topic, msg.Topic)
		}
		if msg.Key != key {
			t.Errorf("Expected key %s, got %s", key, msg.Key)
		}
		if string(msg.Value) != string(value) {
			t.Errorf("Expected value %s, got %s", string(value), string(msg.Value))
		}
		if msg.Timestamp == 0 {
			t.Error("Expected timestamp to be set")
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestInMemoryBroker_MultipleSubscribers(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	topic := "ci_build_events"

	sub1, err := broker.Subscribe(ctx, topic, "group1")
	if err != nil {
		t.Fatalf("Subscribe 1 failed: %v", err)
	}
	sub2, err := broker.Subscribe(ctx, topic, "group2")
	if err != nil {
		t.Fatalf("Subscribe 2 failed: %v", err)
	}

	value := []byte("broadcast message")
	if err := broker.Publish(ctx, topic, "key", value); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for i, sub := range []<-chan Message{sub1, sub2} {
		select {
		case msg := <-sub:
			if string(msg.Value) != string(value) {
				t.Errorf("Subscriber %d: expected value %s, got %s", i+1, string(value), string(msg.Value))
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Subscriber %d: timeout waiting for message", i+1)
		}
	}
}

func TestInMemoryBroker_OtherTopicNotDelivered(t *testing.T) {
	broker := NewInMemoryBroker()
	defer broker.Close()

	ctx := context.Background()
	sub, err := broker.Subscribe(ctx, "a", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := broker.Publish(ctx, "b", "k", []byte("v")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-sub:
		t.Fatalf("unexpected message on topic a: %+v", msg)
	default:
	}
}

func TestInMemoryBroker_ClosedBroker(t *testing.T) {
	broker := NewInMemoryBroker()
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "test", "group")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	broker.Close()

	if _, ok := <-sub; ok {
		t.Error("Expected subscriber channel to be closed")
	}

	if err := broker.Publish(ctx, "test", "key", []byte("value")); err == nil {
		t.Error("Expected error when publishing to closed broker")
	}
	if _, err := broker.Subscribe(ctx, "test", "group"); err == nil {
		t.Error("Expected error when subscribing to closed broker")
	}
	if err := broker.Close(); err != nil {
		t.Errorf("Second Close returned %v", err)
	}
}

type failingBroker struct {
	err    error
	closed bool
}

func (f *failingBroker) Publish(ctx context.Context, topic, key string, value []byte) error {
	return f.err
}

func (f *failingBroker) Close() error {
	f.closed = true
	return f.err
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryBroker()
	sub, err := mem.Subscribe(ctx, "t", "g")
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	boom := errors.New("boom")
	bad := &failingBroker{err: boom}
	m := Multi{bad, mem}

	err = m.Publish(ctx, "t", "k", []byte("v"))
	if !errors.Is(err, boom) {
		t.Fatalf("Publish error = %v, want %v", err, boom)
	}
	select {
	case msg := <-sub:
		if string(msg.Value) != "v" {
			t.Errorf("got value %q", msg.Value)
		}
	case <-time.After(time.Second):
		t.Fatal("in-memory broker did not receive message after sibling failure")
	}

	if err := m.Close(); !errors.Is(err, boom) {
		t.Errorf("Close error = %v, want %v", err, boom)
	}
	if !bad.closed {
		t.Error("failing broker was not closed")
	}
}

func TestNewRedpandaBroker_RequiresBrokers(t *testing.T) {
	if _, err := NewRedpandaBroker(nil); err == nil {
		t.Error("expected error for empty broker list")
	}
}
