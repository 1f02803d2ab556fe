package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultS3Endpoint is used for s3:// URLs when no endpoint is configured.
const DefaultS3Endpoint = "s3.amazonaws.com"

// Source opens a dataset archive. size is -1 when unknown.
type Source interface {
	Open(ctx context.Context, rawURL string) (body io.ReadCloser, size int64, err error)
}

// HTTPSource downloads over http(s).
type HTTPSource struct {
	Client *http.Client
}

// Open implements Source.
func (s HTTPSource) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute download request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("download failed with status: %s", resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}

// S3Source downloads s3://bucket/key objects with credentials from the
// standard AWS environment variables.
type S3Source struct {
	Endpoint string
	Secure   bool
}

// Open implements Source.
func (s S3Source) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	bucket, key, err := ParseS3URL(rawURL)
	if err != nil {
		return nil, 0, err
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultS3Endpoint
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvAWS(),
		Secure: s.Secure,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create s3 client: %w", err)
	}
	obj, err := client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get s3 object: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, 0, fmt.Errorf("failed to stat s3 object: %w", err)
	}
	return obj, info.Size, nil
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url: %w", err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 url %q, want s3://bucket/key", rawURL)
	}
	return u.Host, key, nil
}
