package minio

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

type Remover struct {
	client *Client
	cfg    RemoverConfig
}

func NewRemover(client *Client, cfg RemoverConfig) *Remover {
	return &Remover{
		client: client,
		cfg:    cfg,
	}
}

func (r *Remover) Remove(ctx context.Context, blobID string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Timeout)*time.Millisecond)
	defer cancel()

	err := r.client.MinioClient.RemoveObject(ctx, r.client.Bucket, blobID, minio.RemoveObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil
		}

		return fmt.Errorf("remove object %s: %w", blobID, err)
	}

	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return true
	default:
		return false
	}
}
