package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// memoryClient is an in-memory S3Client for tests and local development.
type memoryClient struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryClient() S3Client {
	return &memoryClient{objects: make(map[string][]byte)}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (c *memoryClient) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[objectKey(bucket, key)] = data
	return nil
}

func (c *memoryClient) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.objects[objectKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *memoryClient) Exists(ctx context.Context, bucket, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.objects[objectKey(bucket, key)]
	return ok, nil
}

func (c *memoryClient) Delete(ctx context.Context, bucket, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, objectKey(bucket, key))
	return nil
}

func (c *memoryClient) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.objects[objectKey(bucket, key)]; !ok {
		return "", fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	return fmt.Sprintf("https://storage.local/%s/%s?expires=%d", bucket, key, int(expiration.Seconds())), nil
}
