package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/labstack/echo/v4"

	"ephemera/internal/application/usecase"
	"ephemera/internal/application/usecase/abstraction"
	"ephemera/internal/domain/dto"
	"ephemera/internal/domain/model"
	"ephemera/internal/presentation"
)

type CreateHandler struct {
	creator abstraction.Creator
}

func NewCreateHandler(creator abstraction.Creator) *CreateHandler {
	return &CreateHandler{
		creator: creator,
	}
}

// Handle handles POST / multipart requests.
func (h *CreateHandler) Handle(c echo.Context) error {
	owner, _ := c.Get(presentation.PK).(string)

	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "invalid multipart form")
	}

	files := form.File[presentation.MediaField]
	media := make([]usecase.MediaUpload, 0, len(files))
	for _, fh := range files {
		body, err := readPart(fh)
		if err != nil {
			return badRequest(c, fmt.Sprintf("read %s: %s", fh.Filename, err.Error()))
		}

		media = append(media, usecase.MediaUpload{
			Body:        body,
			ContentType: fh.Header.Get(presentation.TypeKey),
			Filename:    fh.Filename,
		})
	}

	req := usecase.CreateRequest{
		OwnerID:     owner,
		Media:       media,
		Description: c.FormValue(presentation.DescriptionField),
		Visibility:  model.Visibility(c.FormValue(presentation.VisibilityField)),
	}

	if v := c.FormValue(presentation.ExpiresInField); v != "" {
		ttl, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return badRequest(c, "expires_in must be a number of seconds")
		}
		req.TTL = &ttl
	}

	content, err := h.creator.Create(c.Request().Context(), req)
	if err != nil {
		logger.Warn("create failed", "owner", owner, "err", err)

		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, dto.NewContentDescriptor(content))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
