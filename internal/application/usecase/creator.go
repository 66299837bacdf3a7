package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/gabriel-vasile/mimetype"

	"ephemera/internal/application/release"
	"ephemera/internal/domain/apperr"
	"ephemera/internal/domain/entity"
	"ephemera/internal/domain/model"
	"ephemera/internal/domain/repository/database"
	"ephemera/internal/domain/repository/minio"
	"ephemera/pkg/retry"
	"ephemera/pkg/utils"
)

// MediaUpload is one media buffer of a create request.
type MediaUpload struct {
	Body        []byte
	ContentType string
	Filename    string
}

type CreateRequest struct {
	OwnerID     string
	Media       []MediaUpload
	Description string
	Visibility  model.Visibility

	// TTL in seconds; nil uses the configured default and 0 never expires.
	TTL *int64
}

type Creator struct {
	owners   database.OwnerRetriever
	writer   database.ContentWriter
	uploader minio.Uploader
	releaser *release.Releaser
	ledger   database.OrphanLedger
	cfg      Config
	now      func() time.Time
}

func NewCreator(owners database.OwnerRetriever, writer database.ContentWriter, uploader minio.Uploader,
	remover minio.Remover, ledger database.OrphanLedger, cfg Config,
) *Creator {
	return &Creator{
		owners:   owners,
		writer:   writer,
		uploader: uploader,
		releaser: release.New(remover, cfg.DeletePolicy(), 0),
		ledger:   ledger,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (c *Creator) Create(ctx context.Context, req CreateRequest) (*model.Content, error) {
	const op = "create content"

	contentTypes, ttl, err := c.validate(req)
	if err != nil {
		return nil, err
	}

	ok, err := c.owners.Exists(ctx, req.OwnerID)
	if err != nil {
		return nil, apperr.Dependency(op, "failed to look up owner", err)
	}
	if !ok {
		return nil, apperr.NotFound(op, "owner not found")
	}

	media := make([]model.Media, 0, len(req.Media))
	for i, m := range req.Media {
		var blob entity.UploadedBlob
		_, err := retry.Do(ctx, c.cfg.UploadPolicy(), func(ctx context.Context) error {
			var uploadErr error
			blob, uploadErr = c.uploader.Upload(ctx, m.Body, contentTypes[i])

			return uploadErr
		})
		if err != nil {
			logger.Error("failed to upload media", "owner", req.OwnerID, "index", i, "err", err)
			c.compensate(ctx, media)

			return nil, apperr.Dependency(op, fmt.Sprintf("failed to upload media %d of %d", i+1, len(req.Media)), err)
		}

		media = append(media, model.Media{BlobID: blob.BlobID, URL: blob.URL})
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = model.VisibilityPublic
	}

	content := &model.Content{
		OwnerID:     req.OwnerID,
		Media:       media,
		Description: req.Description,
		Visibility:  visibility,
		Viewers:     []model.Viewer{},
	}
	if ttl > 0 {
		exp := c.now().Add(ttl).UTC()
		content.ExpiresAt = &exp
	}

	if err := c.writer.Write(ctx, content); err != nil {
		logger.Error("failed to persist content", "owner", req.OwnerID, "err", err)
		c.compensate(ctx, media)

		return nil, apperr.Dependency(op, "failed to persist content", err)
	}

	return content, nil
}

// validate returns the content type each buffer is stored under and the ttl.
func (c *Creator) validate(req CreateRequest) ([]string, time.Duration, error) {
	const op = "create content"

	if req.OwnerID == "" {
		return nil, 0, apperr.Validation(op, "owner is required")
	}

	if len(req.Media) == 0 {
		return nil, 0, apperr.Validation(op, "at least one media file is required")
	}

	if c.cfg.MaxMedia > 0 && len(req.Media) > c.cfg.MaxMedia {
		return nil, 0, apperr.Validation(op, fmt.Sprintf("at most %d media files are allowed", c.cfg.MaxMedia))
	}

	if c.cfg.RequireDescription && req.Description == "" {
		return nil, 0, apperr.Validation(op, "description is required")
	}

	if req.Visibility != "" && !req.Visibility.Valid() {
		return nil, 0, apperr.Validation(op, fmt.Sprintf("invalid visibility %q", req.Visibility))
	}

	ttl := time.Duration(c.cfg.DefaultTTL) * time.Second
	if req.TTL != nil {
		if *req.TTL < 0 {
			return nil, 0, apperr.Validation(op, "ttl must not be negative")
		}
		ttl = time.Duration(*req.TTL) * time.Second
	}

	contentTypes := make([]string, 0, len(req.Media))
	for i, m := range req.Media {
		if len(m.Body) == 0 {
			return nil, 0, apperr.Validation(op, fmt.Sprintf("media %d is empty", i+1))
		}

		detected := utils.BaseType(mimetype.Detect(m.Body).String())
		if !utils.IsMedia(detected) {
			return nil, 0, apperr.Validation(op, fmt.Sprintf("media %d: unsupported type %s", i+1, detected))
		}

		if !utils.Compatible(m.ContentType, detected) {
			return nil, 0, apperr.Validation(op,
				fmt.Sprintf("media %d: declared type %s does not match content %s", i+1, m.ContentType, detected))
		}

		contentTypes = append(contentTypes, detected)
	}

	return contentTypes, ttl, nil
}

// compensate removes blobs uploaded for a request that did not complete.
// Blobs that cannot be removed are left to the orphan ledger.
func (c *Creator) compensate(ctx context.Context, media []model.Media) {
	if len(media) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	ids := make([]string, 0, len(media))
	for _, m := range media {
		ids = append(ids, m.BlobID)
	}

	for _, f := range c.releaser.Release(ctx, ids) {
		logger.Error("failed to remove blob of abandoned upload", "blob_id", f.BlobID, "err", f.Err)

		err := c.ledger.Record(ctx, &model.Orphan{
			BlobID:    f.BlobID,
			LastError: f.Err.Error(),
			Attempts:  f.Attempts,
		})
		if err != nil {
			logger.Error("failed to record orphan", "blob_id", f.BlobID, "err", err)
		}
	}
}
