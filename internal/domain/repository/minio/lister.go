package minio

import (
	"context"

	"ephemera/internal/domain/entity"
)

type Lister interface {
	// Walk calls fn for every stored blob and stops at the first error.
	Walk(ctx context.Context, fn func(entity.StoredBlob) error) error
}
