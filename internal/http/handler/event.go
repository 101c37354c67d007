package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

var ErrNoObject = errors.New("event does not reference a storage object")

// StorageEvent is a decoded object notification.
type StorageEvent struct {
	Bucket     string `json:"bucket"`
	Object     string `json:"object"`
	Generation string `json:"generation"`
	EventID    string `json:"event_id"`
}

// DedupeKey identifies the delivery for duplicate suppression. Redelivery
// of the same object arrives under a fresh message id, so the key is the
// object itself, qualified by generation when the notification carries one.
func (e StorageEvent) DedupeKey() string {
	key := e.Bucket + "/" + e.Object
	if e.Generation != "" {
		key += "#" + e.Generation
	}
	return key
}

type rawObjectEvent struct {
	Bucket     string `json:"bucket"`
	Name       string `json:"name"`
	Object     string `json:"object"`
	Generation string `json:"generation"`
	ID         string `json:"id"`
}

type pushEnvelope struct {
	Message struct {
		Data      []byte `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type cloudEventEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseStorageEvent decodes an object notification in any of the three
// shapes a caller may deliver it: a push envelope with base64 data, a
// structured event with a nested data object, or the object reference
// itself.
func ParseStorageEvent(body []byte) (StorageEvent, error) {
	var push pushEnvelope
	if err := json.Unmarshal(body, &push); err == nil && len(push.Message.Data) > 0 {
		event, err := parseObjectEvent(push.Message.Data)
		if err != nil {
			return StorageEvent{}, err
		}
		if event.EventID == "" {
			event.EventID = push.Message.MessageID
		}
		return event, nil
	}

	var ce cloudEventEnvelope
	if err := json.Unmarshal(body, &ce); err == nil && len(ce.Data) > 0 {
		event, err := parseObjectEvent(ce.Data)
		if err != nil {
			return StorageEvent{}, err
		}
		if event.EventID == "" {
			event.EventID = ce.ID
		}
		return event, nil
	}

	return parseObjectEvent(body)
}

func parseObjectEvent(data []byte) (StorageEvent, error) {
	// Push payloads arrive base64 encoded inside the envelope; json
	// decoding of []byte already handled that. A raw string payload
	// may still be double encoded.
	if decoded, err := base64.StdEncoding.DecodeString(string(data)); err == nil && json.Valid(decoded) {
		data = decoded
	}

	var raw rawObjectEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return StorageEvent{}, errors.New("event payload is not valid JSON")
	}

	object := raw.Name
	if object == "" {
		object = raw.Object
	}
	if object == "" {
		return StorageEvent{}, ErrNoObject
	}

	return StorageEvent{Bucket: raw.Bucket, Object: object, Generation: raw.Generation, EventID: raw.ID}, nil
}

func contextWithTimeout(c *fiber.Ctx, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), d)
}
