package handler

import (
	"net/http"

	"github.com/dezh-tech/immortal/pkg/logger"
	"github.com/labstack/echo/v4"

	"ephemera/internal/application/usecase/abstraction"
	"ephemera/internal/presentation"
)

type DeleteHandler struct {
	deleter abstraction.Deleter
}

func NewDeleteHandler(deleter abstraction.Deleter) *DeleteHandler {
	return &DeleteHandler{
		deleter: deleter,
	}
}

// HandleDelete handles DELETE /:id requests.
func (h *DeleteHandler) HandleDelete(c echo.Context) error {
	id := c.Param(presentation.IDParam)
	if id == "" {
		return badRequest(c, "missing content id")
	}

	requester, _ := c.Get(presentation.PK).(string)
	if err := h.deleter.Delete(c.Request().Context(), id, requester); err != nil {
		logger.Warn("delete failed", "id", id, "err", err)

		return respondError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
