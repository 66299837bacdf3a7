package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"ephemera/internal/presentation"
)

// AuthDeleteMiddleware binds a delete authorization to one record: the
// event's `x` tag must name the record in the path. It runs after
// AuthMiddleware.
func AuthDeleteMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			x, _ := ctx.Get(presentation.XTag).(string)
			if x == "" {
				return unauthorized(ctx, errors.New("missing 'x' tag for delete action"))
			}

			if x != ctx.Param(presentation.IDParam) {
				return unauthorized(ctx, errors.New("x tag mismatch with content id for delete action"))
			}

			return next(ctx)
		}
	}
}
