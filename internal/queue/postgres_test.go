package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*postgresQueue, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	q := &postgresQueue{db: db, now: func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	}}
	return q, mock
}

func TestPostgresQueue_Publish(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec("INSERT INTO queue_messages").
		WithArgs(sqlmock.AnyArg(), TopicPackagesReady, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := q.Publish(context.Background(), TopicPackagesReady,
		map[string]string{"bucket": "shipments-packages"},
		map[string]string{"event": "package_created"})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_Publish_UnmarshalablePayload(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Publish(context.Background(), TopicPackagesReady, make(chan int), nil)
	assert.Error(t, err)
}

func TestPostgresQueue_Receive(t *testing.T) {
	q, mock := newTestQueue(t)
	now := q.now()

	payload := json.RawMessage(`{"object":"abc/file_part_1_of_2.json"}`)
	rows := sqlmock.NewRows([]string{"id", "topic", "payload", "attributes", "receive_count", "visible_at", "created_at"}).
		AddRow("msg-1", TopicPackagesReady, []byte(payload), []byte(`{"event":"package_created"}`), 0, now, now)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WithArgs(TopicPackagesReady, sqlmock.AnyArg()).
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE queue_messages SET receive_count").
		WithArgs("msg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := q.Receive(context.Background(), TopicPackagesReady, 30*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "msg-1", msg.ID)
	assert.Equal(t, 1, msg.ReceiveCount)
	assert.Equal(t, "package_created", msg.Attributes["event"])
	assert.Equal(t, now.Add(30*time.Second), msg.VisibleAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_Receive_Empty(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE SKIP LOCKED").
		WithArgs(TopicEmailNotifications, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "topic", "payload", "attributes", "receive_count", "visible_at", "created_at"}))
	mock.ExpectRollback()

	_, err := q.Receive(context.Background(), TopicEmailNotifications, 30*time.Second)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestPostgresQueue_Delete(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec("DELETE FROM queue_messages").
		WithArgs("msg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, q.Delete(context.Background(), "msg-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_MoveToDLQ(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec("UPDATE queue_messages").
		WithArgs("msg-1", TopicPackagesReady+DLQSuffix, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	msg := &Message{ID: "msg-1", Topic: TopicPackagesReady}
	assert.NoError(t, q.MoveToDLQ(context.Background(), msg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueue_ChangeVisibility_Error(t *testing.T) {
	q, mock := newTestQueue(t)

	mock.ExpectExec("UPDATE queue_messages SET visible_at").
		WithArgs("msg-1", sqlmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := q.ChangeVisibility(context.Background(), "msg-1", time.Minute)
	assert.Error(t, err)
}
