package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Topics routed through the queue.
const (
	TopicPackagesReady      = "packages-ready"
	TopicEmailNotifications = "email-notifications"
	TopicProcessingErrors   = "processing-errors"
)

// DLQSuffix is appended to a topic name when a message exhausts its
// receive budget.
const DLQSuffix = ".dlq"

var ErrNoMessage = errors.New("queue: no message available")

// Message is one queued unit of work. Payload holds the JSON-encoded
// body and Attributes optional routing metadata.
type Message struct {
	ID           string
	Topic        string
	Payload      json.RawMessage
	Attributes   map[string]string
	ReceiveCount int
	VisibleAt    time.Time
	CreatedAt    time.Time
}

// Bind unmarshals the payload into v.
func (m *Message) Bind(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// Publisher enqueues messages on a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any, attributes map[string]string) (string, error)
}

// Client is the full queue surface used by consumers.
type Client interface {
	Publisher
	Receive(ctx context.Context, topic string, visibility time.Duration) (*Message, error)
	Delete(ctx context.Context, id string) error
	ChangeVisibility(ctx context.Context, id string, visibility time.Duration) error
	MoveToDLQ(ctx context.Context, msg *Message) error
}
