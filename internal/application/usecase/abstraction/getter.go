package abstraction

import (
	"context"

	"ephemera/internal/domain/dto"
)

type Getter interface {
	Get(ctx context.Context, id string) (*dto.ContentDescriptor, error)
	ListByOwner(ctx context.Context, ownerID string) ([]dto.ContentDescriptor, error)
}
