// Package archive stores raw scrape snapshots (rendered page text, logo
// screenshots) in S3-compatible object storage for later audit. The archive
// is optional: when disabled the pipeline runs without it, and archive
// failures never fail a scrape.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/eventrake/eventrake/pkg/models"
)

// Config holds S3/MinIO configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for snapshot writes.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new archive client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{minioClient: minioClient, bucket: config.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// PutPageText archives the rendered text of one scrape. Returns the object
// key.
func (c *Client) PutPageText(ctx context.Context, sourceURL, text string) (string, error) {
	key := objectKey("scrapes", sourceURL, models.Fingerprint(text)[:8], "txt")
	return key, c.put(ctx, key, []byte(text), "text/plain; charset=utf-8")
}

// PutScreenshot archives a logo-detection screenshot. Returns the object
// key.
func (c *Client) PutScreenshot(ctx context.Context, sourceURL string, png []byte) (string, error) {
	key := objectKey("screenshots", sourceURL, models.Fingerprint(string(png))[:8], "png")
	return key, c.put(ctx, key, png, "image/png")
}

func (c *Client) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.minioClient.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// objectKey builds "{prefix}/{host}/{timestamp}-{shortid}.{ext}".
func objectKey(prefix, sourceURL, shortID, ext string) string {
	host := "unknown"
	if u, err := url.Parse(sourceURL); err == nil && u.Host != "" {
		host = u.Host
	}
	ts := time.Now().UTC().Format("2006-01-02T15-04-05")
	return fmt.Sprintf("%s/%s/%s-%s.%s", prefix, host, ts, shortID, ext)
}
