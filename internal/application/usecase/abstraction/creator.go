package abstraction

import (
	"context"

	"ephemera/internal/application/usecase"
	"ephemera/internal/domain/model"
)

type Creator interface {
	Create(ctx context.Context, req usecase.CreateRequest) (*model.Content, error)
}
