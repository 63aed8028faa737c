package minio

import (
	"bytes"
	"context"
	"io"

	"github.com/minio/minio-go/v7"
)

// objectAPI is the subset of object storage operations the archive needs.
type objectAPI interface {
	bucketExists(ctx context.Context, bucket string) (bool, error)
	makeBucket(ctx context.Context, bucket, region string) error
	put(ctx context.Context, bucket, key string, data []byte, userMetadata map[string]string) error

	// get returns an error translating to ErrObjectNotFound when key does not exist
	get(ctx context.Context, bucket, key string) ([]byte, error)

	// list returns the keys under prefix in lexical order
	list(ctx context.Context, bucket, prefix string) ([]string, error)
}

// minioObjects implements objectAPI with a minio-go client.
type minioObjects struct {
	client *minio.Client
}

func (m *minioObjects) bucketExists(ctx context.Context, bucket string) (bool, error) {
	return m.client.BucketExists(ctx, bucket)
}

func (m *minioObjects) makeBucket(ctx context.Context, bucket, region string) error {
	return m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
}

func (m *minioObjects) put(ctx context.Context, bucket, key string, data []byte, userMetadata map[string]string) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  documentContentType,
		UserMetadata: userMetadata,
	})
	return err
}

func (m *minioObjects) get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = obj.Close() }()

	// Errors such as NoSuchKey surface on the first read.
	return io.ReadAll(obj)
}

func (m *minioObjects) list(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for info := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, info.Err
		}
		keys = append(keys, info.Key)
	}
	return keys, nil
}
