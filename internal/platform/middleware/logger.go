package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinova/emr/internal/platform/auth"
)

// Logger emits one structured line per request. Authenticated requests
// carry the acting role and clinic so tenant activity is traceable from
// the request log alone.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			rid, _ := c.Get("request_id").(string)

			err := next(c)

			// Re-read the request: the auth middleware further down the
			// chain swaps in a context carrying the principal.
			req := c.Request()

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}
			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if p, ok := auth.FromContext(req.Context()); ok {
				evt = evt.Str("role", string(p.Role))
				if p.ClinicID != nil {
					evt = evt.Str("clinic_id", p.ClinicID.String())
				}
			}

			evt.Msg("request")
			return err
		}
	}
}
