package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"shipstream/internal/queue"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Publish(ctx context.Context, topic string, payload any, attributes map[string]string) (string, error) {
	args := m.Called(ctx, topic, payload, attributes)
	return args.String(0), args.Error(1)
}

func (m *MockClient) Receive(ctx context.Context, topic string, visibility time.Duration) (*queue.Message, error) {
	args := m.Called(ctx, topic, visibility)
	var msg *queue.Message
	if v := args.Get(0); v != nil {
		msg = v.(*queue.Message)
	}
	return msg, args.Error(1)
}

func (m *MockClient) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockClient) ChangeVisibility(ctx context.Context, id string, visibility time.Duration) error {
	args := m.Called(ctx, id, visibility)
	return args.Error(0)
}

func (m *MockClient) MoveToDLQ(ctx context.Context, msg *queue.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
