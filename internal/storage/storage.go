package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound reports that the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// PutOptions carries optional metadata for an upload.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// ObjectStorage abstracts the object store. Keys are addressed per bucket
// so one client can serve the pending, packages, images and zips buckets.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}
