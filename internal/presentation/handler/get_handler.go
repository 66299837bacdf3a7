package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ephemera/internal/application/usecase/abstraction"
	"ephemera/internal/presentation"
)

type GetHandler struct {
	getter abstraction.Getter
}

func NewGetHandler(getter abstraction.Getter) *GetHandler {
	return &GetHandler{
		getter: getter,
	}
}

// HandleGet handles GET /:id requests.
func (h *GetHandler) HandleGet(c echo.Context) error {
	id := c.Param(presentation.IDParam)
	if id == "" {
		return badRequest(c, "missing content id")
	}

	content, err := h.getter.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, content)
}

// HandleList handles GET /owner/:pubkey requests, newest first.
func (h *GetHandler) HandleList(c echo.Context) error {
	contents, err := h.getter.ListByOwner(c.Request().Context(), c.Param(presentation.PubKeyParam))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, contents)
}
