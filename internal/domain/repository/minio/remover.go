package minio

import "context"

// Remover deletes a blob. Removing a missing blob is not an error.
type Remover interface {
	Remove(ctx context.Context, blobID string) error
}
