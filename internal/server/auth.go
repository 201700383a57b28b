package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AuthMiddleware validates the bearer token on API routes. Paths in skip
// stay public. An empty token disables authentication entirely.
func AuthMiddleware(token string, skip []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			for _, path := range skip {
				if c.Request().URL.Path == path {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				return c.JSON(http.StatusUnauthorized, failureBody("missing or malformed authorization header, expected 'Bearer <token>'"))
			}
			if strings.TrimPrefix(authHeader, prefix) != token {
				return c.JSON(http.StatusUnauthorized, failureBody("invalid auth token"))
			}

			return next(c)
		}
	}
}
