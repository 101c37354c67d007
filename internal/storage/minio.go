package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"shipstream/internal/config"
)

type minioStorage struct {
	client *minio.Client
}

// NewMinIO builds an ObjectStorage backed by a MinIO or S3 compatible
// endpoint and makes sure the configured buckets exist.
func NewMinIO(ctx context.Context, c config.MinIOConfig, buckets config.BucketConfig) (ObjectStorage, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := &minioStorage{client: client}
	for _, bucket := range []string{buckets.Pending, buckets.Packages, buckets.Images, buckets.Zips} {
		if bucket == "" {
			continue
		}
		if err := s.ensureBucket(ctx, bucket); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *minioStorage) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *minioStorage) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, opts PutOptions) (ObjectInfo, error) {
	info, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to upload object %s/%s: %w", bucket, key, err)
	}
	return ObjectInfo{Key: info.Key, Size: info.Size, ContentType: opts.ContentType}, nil
}

func (s *minioStorage) Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("failed to get object %s/%s: %w", bucket, key, err)
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, ObjectInfo{}, fmt.Errorf("failed to stat object %s/%s: %w", bucket, key, asStorageErr(err))
	}

	return obj, objectInfoFromMinio(stat), nil
}

func (s *minioStorage) Stat(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	stat, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to stat object %s/%s: %w", bucket, key, asStorageErr(err))
	}
	return objectInfoFromMinio(stat), nil
}

func (s *minioStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s *minioStorage) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	var infos []ObjectInfo
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects %s/%s: %w", bucket, prefix, obj.Err)
		}
		infos = append(infos, objectInfoFromMinio(obj))
	}
	return infos, nil
}

func (s *minioStorage) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	reqParams := make(url.Values)
	presigned, err := s.client.PresignedGetObject(ctx, bucket, key, expiry, reqParams)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s/%s: %w", bucket, key, err)
	}
	return presigned.String(), nil
}

// asStorageErr maps key-miss responses to ErrObjectNotFound so callers
// can branch on errors.Is without depending on the minio error shape.
func asStorageErr(err error) error {
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return err
}

func objectInfoFromMinio(o minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		ContentType:  o.ContentType,
		LastModified: o.LastModified,
	}
}
