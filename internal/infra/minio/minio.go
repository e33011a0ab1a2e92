// Package minioblob stores attachment payloads in S3-compatible object storage.
package minioblob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/arslanov/padlock/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client wraps MinIO operations for attachment payloads.
type Client struct {
	client *minio.Client
	bucket string
}

// NewClient initializes a MinIO client and ensures the bucket exists.
func NewClient(ctx context.Context, cfg config.MinioConfig) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = "padlock"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("minio: check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("minio: create bucket: %w", err)
		}
	}

	return &Client{client: client, bucket: bucket}, nil
}

// Put uploads a payload under the given object key.
func (c *Client) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	reader := bytes.NewReader(data)
	_, err := c.client.PutObject(ctx, c.bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("minio: put object %s: %w", key, err)
	}
	return nil
}

// Get downloads the payload stored under the given object key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	object, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio: get object %s: %w", key, err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("minio: read object %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the payload stored under the given object key. Removing a
// missing object is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("minio: delete object %s: %w", key, err)
	}
	return nil
}
