package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"ephemera/internal/domain/apperr"
	"ephemera/internal/presentation"
)

type errorResponse struct {
	Error       string   `json:"error"`
	FailedBlobs []string `json:"failed_blobs,omitempty"`
}

func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicReason omits the wrapped cause so driver errors stay in the logs.
func publicReason(err error) string {
	var e *apperr.Error
	if !errors.As(err, &e) {
		return "internal error"
	}

	if e.Msg != "" {
		return e.Msg
	}

	return e.Kind.String()
}

func respondError(c echo.Context, err error) error {
	reason := publicReason(err)
	c.Response().Header().Set(presentation.ReasonTag, reason)

	return c.JSON(statusOf(err), errorResponse{
		Error:       reason,
		FailedBlobs: apperr.FailedBlobs(err),
	})
}

func badRequest(c echo.Context, reason string) error {
	c.Response().Header().Set(presentation.ReasonTag, reason)

	return c.JSON(http.StatusBadRequest, errorResponse{Error: reason})
}
