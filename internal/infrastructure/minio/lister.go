package minio

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"

	"ephemera/internal/domain/entity"
)

type Lister struct {
	client *Client
}

func NewLister(client *Client) *Lister {
	return &Lister{client: client}
}

// Walk streams the bucket listing page by page; nothing is held beyond the
// page in flight.
func (l *Lister) Walk(ctx context.Context, fn func(entity.StoredBlob) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	objects := l.client.MinioClient.ListObjects(ctx, l.client.Bucket, minio.ListObjectsOptions{Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("list objects: %w", obj.Err)
		}

		err := fn(entity.StoredBlob{
			BlobID:       obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
