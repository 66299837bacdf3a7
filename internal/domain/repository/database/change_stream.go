package database

import (
	"context"

	"ephemera/internal/domain/entity"
)

type DeletionStream interface {
	// Subscribe starts after resumeToken, or at the current time when it is empty.
	Subscribe(ctx context.Context, resumeToken []byte) (DeletionCursor, error)
}

type DeletionCursor interface {
	Next(ctx context.Context) bool
	Event() entity.DeletionEvent
	ResumeToken() []byte
	Err() error
	Close(ctx context.Context) error
}

type CheckpointStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, token []byte) error
	Clear(ctx context.Context) error
}
