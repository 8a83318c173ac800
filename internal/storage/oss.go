package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStore keeps objects in an Aliyun OSS bucket.
type OSSStore struct {
	bucket  *oss.Bucket
	baseURL string
}

func NewOSSStore(endpoint, accessKeyID, accessKeySecret, bucketName, publicBaseURL string) (*OSSStore, error) {
	client, err := oss.New(endpoint, accessKeyID, accessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}
	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to open OSS bucket %s: %w", bucketName, err)
	}
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.%s", bucketName, trimScheme(endpoint))
	}
	return &OSSStore{bucket: bucket, baseURL: publicBaseURL}, nil
}

func (s *OSSStore) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	opts := []oss.Option{oss.WithContext(ctx)}
	if contentType != "" {
		opts = append(opts, oss.ContentType(contentType))
	}
	if err := s.bucket.PutObject(key, body, opts...); err != nil {
		return fmt.Errorf("put OSS object failed: %w", err)
	}
	return nil
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if err := s.bucket.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return fmt.Errorf("delete OSS object failed: %w", err)
	}
	return nil
}

func (s *OSSStore) URL(key string) string {
	return joinURL(s.baseURL, key)
}

func trimScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}
