package database

import (
	"context"

	"ephemera/internal/domain/model"
)

// ContentWriter persists a new record, assigning its ID and CreatedAt.
type ContentWriter interface {
	Write(ctx context.Context, content *model.Content) error
}
