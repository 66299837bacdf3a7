package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"ephemera/internal/presentation"
)

// AdminKeyMiddleware guards operator endpoints with a static API key. An
// empty key disables them.
func AdminKeyMiddleware(key string) echo.MiddlewareFunc {
	if key == "" {
		return func(_ echo.HandlerFunc) echo.HandlerFunc {
			return func(ctx echo.Context) error {
				ctx.Response().Header().Set(presentation.ReasonTag, "admin api disabled")

				return ctx.NoContent(http.StatusForbidden)
			}
		}
	}

	return echoMiddleware.KeyAuthWithConfig(echoMiddleware.KeyAuthConfig{
		KeyLookup: "header:" + presentation.APIKeyHeader,
		Validator: func(provided string, _ echo.Context) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1, nil
		},
	})
}
