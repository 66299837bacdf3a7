package database

import "context"

type ContentRemover interface {
	RemoveByID(ctx context.Context, id string) (bool, error)
}
