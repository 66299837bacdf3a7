package minio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Client struct {
	MinioClient *minio.Client
	Bucket      string
	publicURL   string
}

func New(cfg ClientConfig) (*Client, error) {
	logger.Info("connecting to minio", "endpoint", cfg.Endpoint, "bucket", cfg.Bucket)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize minio client: %w", err)
	}

	c := &Client{
		MinioClient: client,
		Bucket:      cfg.Bucket,
		publicURL:   strings.TrimSuffix(cfg.PublicURL, "/"),
	}
	if c.publicURL == "" {
		c.publicURL = strings.TrimSuffix(client.EndpointURL().String(), "/")
	}

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.ensureBucket(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) ensureBucket(ctx context.Context) error {
	exists, err := c.MinioClient.BucketExists(ctx, c.Bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", c.Bucket, err)
	}
	if exists {
		return nil
	}

	if err := c.MinioClient.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("make bucket %s: %w", c.Bucket, err)
	}

	logger.Info("created minio bucket", "bucket", c.Bucket)

	return nil
}

// URL is the public address of a blob.
func (c *Client) URL(blobID string) string {
	return fmt.Sprintf("%s/%s/%s", c.publicURL, c.Bucket, blobID)
}
