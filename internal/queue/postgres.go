package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresQueue struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgres returns a Client backed by the queue_messages table.
// Receive claims messages with FOR UPDATE SKIP LOCKED so multiple
// consumers can poll the same topic without double delivery.
func NewPostgres(db *sql.DB) Client {
	return &postgresQueue{db: db, now: time.Now}
}

func (q *postgresQueue) Publish(ctx context.Context, topic string, payload any, attributes map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload for topic %s: %w", topic, err)
	}

	var attrs []byte
	if len(attributes) > 0 {
		attrs, err = json.Marshal(attributes)
		if err != nil {
			return "", fmt.Errorf("failed to marshal attributes for topic %s: %w", topic, err)
		}
	}

	id := uuid.New().String()
	query := `INSERT INTO queue_messages (id, topic, payload, attributes, visible_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $5)`
	if _, err := q.db.ExecContext(ctx, query, id, topic, body, attrs, q.now().UTC()); err != nil {
		return "", fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	return id, nil
}

func (q *postgresQueue) Receive(ctx context.Context, topic string, visibility time.Duration) (*Message, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin receive transaction: %w", err)
	}
	defer tx.Rollback()

	now := q.now().UTC()
	query := `SELECT id, topic, payload, attributes, receive_count, visible_at, created_at
		FROM queue_messages
		WHERE topic = $1 AND visible_at <= $2
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	var (
		msg   Message
		attrs []byte
	)
	row := tx.QueryRowContext(ctx, query, topic, now)
	err = row.Scan(&msg.ID, &msg.Topic, &msg.Payload, &attrs, &msg.ReceiveCount, &msg.VisibleAt, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoMessage
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim message on topic %s: %w", topic, err)
	}

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &msg.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes for message %s: %w", msg.ID, err)
		}
	}

	update := `UPDATE queue_messages SET receive_count = receive_count + 1, visible_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, msg.ID, now.Add(visibility)); err != nil {
		return nil, fmt.Errorf("failed to extend visibility for message %s: %w", msg.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit receive for message %s: %w", msg.ID, err)
	}

	msg.ReceiveCount++
	msg.VisibleAt = now.Add(visibility)
	return &msg, nil
}

func (q *postgresQueue) Delete(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM queue_messages WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", id, err)
	}
	return nil
}

func (q *postgresQueue) ChangeVisibility(ctx context.Context, id string, visibility time.Duration) error {
	query := `UPDATE queue_messages SET visible_at = $2 WHERE id = $1`
	if _, err := q.db.ExecContext(ctx, query, id, q.now().UTC().Add(visibility)); err != nil {
		return fmt.Errorf("failed to change visibility for message %s: %w", id, err)
	}
	return nil
}

func (q *postgresQueue) MoveToDLQ(ctx context.Context, msg *Message) error {
	query := `UPDATE queue_messages
		SET topic = $2, receive_count = 0, visible_at = $3
		WHERE id = $1`
	dlq := msg.Topic + DLQSuffix
	if _, err := q.db.ExecContext(ctx, query, msg.ID, dlq, q.now().UTC()); err != nil {
		return fmt.Errorf("failed to move message %s to %s: %w", msg.ID, dlq, err)
	}
	return nil
}
