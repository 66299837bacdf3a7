package usecase

import (
	"context"
	"errors"

	"ephemera/internal/domain/apperr"
	"ephemera/internal/domain/dto"
	"ephemera/internal/domain/repository/database"
)

type Getter struct {
	retriever database.ContentRetriever
}

func NewGetter(retriever database.ContentRetriever) *Getter {
	return &Getter{
		retriever: retriever,
	}
}

func (g *Getter) Get(ctx context.Context, id string) (*dto.ContentDescriptor, error) {
	const op = "get content"

	content, err := g.retriever.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound(op, "content not found")
	}
	if err != nil {
		return nil, apperr.Dependency(op, "failed to fetch content", err)
	}

	d := dto.NewContentDescriptor(content)

	return &d, nil
}

func (g *Getter) ListByOwner(ctx context.Context, ownerID string) ([]dto.ContentDescriptor, error) {
	const op = "list content"

	if ownerID == "" {
		return nil, apperr.Validation(op, "owner is required")
	}

	contents, err := g.retriever.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperr.Dependency(op, "failed to list content", err)
	}

	descriptors := make([]dto.ContentDescriptor, 0, len(contents))
	for i := range contents {
		descriptors = append(descriptors, dto.NewContentDescriptor(&contents[i]))
	}

	return descriptors, nil
}
