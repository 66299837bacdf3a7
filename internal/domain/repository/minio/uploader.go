package minio

import (
	"context"

	"ephemera/internal/domain/entity"
)

type Uploader interface {
	Upload(ctx context.Context, body []byte, contentType string) (entity.UploadedBlob, error)
}
