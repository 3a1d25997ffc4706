package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinova/emr/internal/platform/apperr"
)

// publicPaths are reachable without a token.
var publicPaths = map[string]bool{
	"/health":                    true,
	"/health/db":                 true,
	"/api/auth/login":            true,
	"/api/auth/register-patient": true,
}

// Skipper reports whether the request path bypasses authentication.
func Skipper(c echo.Context) bool {
	return publicPaths[c.Request().URL.Path]
}

// Middleware validates the bearer token and attaches the principal to the
// request context.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperr.Unauthenticated("missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return apperr.Unauthenticated("invalid authorization format")
			}

			principal, err := issuer.Parse(parts[1])
			if err != nil {
				return apperr.Unauthenticated("invalid or expired token")
			}

			ctx := WithPrincipal(c.Request().Context(), principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
