package usecase

import (
	"context"
	"errors"

	"github.com/dezh-tech/immortal/pkg/logger"

	"ephemera/internal/application/release"
	"ephemera/internal/domain/apperr"
	"ephemera/internal/domain/repository/database"
	"ephemera/internal/domain/repository/minio"
)

type Deleter struct {
	retriever database.ContentRetriever
	remover   database.ContentRemover
	releaser  *release.Releaser
}

func NewDeleter(retriever database.ContentRetriever, remover database.ContentRemover,
	blobRemover minio.Remover, cfg Config,
) *Deleter {
	return &Deleter{
		retriever: retriever,
		remover:   remover,
		releaser:  release.New(blobRemover, cfg.DeletePolicy(), 0),
	}
}

// Delete removes the blobs of a record and then the record itself. When any
// blob cannot be removed the record is kept so the caller can retry.
func (d *Deleter) Delete(ctx context.Context, id, requester string) error {
	const op = "delete content"

	content, err := d.retriever.GetByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return apperr.NotFound(op, "content not found")
	}
	if err != nil {
		return apperr.Dependency(op, "failed to fetch content", err)
	}

	if content.OwnerID != requester {
		return apperr.Forbidden(op, "only the owner can delete this content")
	}

	if failures := d.releaser.Release(ctx, content.BlobIDs()); len(failures) > 0 {
		logger.Error("failed to remove media, keeping content", "id", id, "failed", len(failures))

		return apperr.Dependency(op, "failed to remove media", release.Join(failures), release.IDs(failures)...)
	}

	removed, err := d.remover.RemoveByID(ctx, id)
	if err != nil {
		return apperr.Dependency(op, "failed to remove content", err)
	}
	if !removed {
		logger.Debug("content expired before explicit delete", "id", id)
	}

	return nil
}
