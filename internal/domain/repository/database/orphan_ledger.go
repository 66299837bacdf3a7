package database

import (
	"context"

	"ephemera/internal/domain/model"
)

type OrphanLedger interface {
	Record(ctx context.Context, orphan *model.Orphan) error
	List(ctx context.Context, limit int64) ([]model.Orphan, error)
	Resolve(ctx context.Context, id string) error
}
