package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"shipstream/internal/storage"
)

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts storage.PutOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key, r, size, opts)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockObjectStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key)
	var rc io.ReadCloser
	if v := args.Get(0); v != nil {
		rc = v.(io.ReadCloser)
	}
	return rc, args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockObjectStorage) Stat(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key)
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

func (m *MockObjectStorage) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockObjectStorage) List(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, prefix)
	var infos []storage.ObjectInfo
	if v := args.Get(0); v != nil {
		infos = v.([]storage.ObjectInfo)
	}
	return infos, args.Error(1)
}

func (m *MockObjectStorage) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiry)
	return args.String(0), args.Error(1)
}
