package database

import (
	"context"

	"ephemera/internal/domain/model"
)

// ContentRetriever never returns records whose expiry has passed.
type ContentRetriever interface {
	GetByID(ctx context.Context, id string) (*model.Content, error)
	GetByOwner(ctx context.Context, ownerID string) ([]model.Content, error)
}

type OwnerRetriever interface {
	Exists(ctx context.Context, ownerID string) (bool, error)
}
