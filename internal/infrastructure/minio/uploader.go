package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"ephemera/internal/domain/entity"
	"ephemera/pkg/utils"
)

type Uploader struct {
	client *Client
	cfg    UploaderConfig
}

func NewUploader(client *Client, cfg UploaderConfig) *Uploader {
	return &Uploader{
		client: client,
		cfg:    cfg,
	}
}

// Upload stores body under a fresh key, so a retried upload never overwrites
// a blob owned by another record.
func (u *Uploader) Upload(ctx context.Context, body []byte, contentType string) (entity.UploadedBlob, error) {
	if len(body) == 0 {
		return entity.UploadedBlob{}, errors.New("read error: empty file")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(u.cfg.Timeout)*time.Millisecond)
	defer cancel()

	blobID := uuid.New().String() + utils.ExtensionFor(contentType)

	info, err := u.client.MinioClient.PutObject(ctx, u.client.Bucket, blobID, bytes.NewReader(body),
		int64(len(body)), minio.PutObjectOptions{
			ContentType: contentType,
		})
	if err != nil {
		return entity.UploadedBlob{}, fmt.Errorf("put object %s: %w", blobID, err)
	}

	return entity.UploadedBlob{
		BlobID: blobID,
		URL:    u.client.URL(blobID),
		Size:   info.Size,
	}, nil
}
