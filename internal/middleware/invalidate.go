package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-tracker/internal/logging"
)

// InvalidateOnSuccess runs purge after the handler answered with a 2xx
// status, so cached catalog responses never outlive a write that changed
// them. A failed purge is logged and does not change the response.
func InvalidateOnSuccess(purge func(ctx context.Context) (int64, error)) echo.MiddlewareFunc {
	log := logging.Component("cache")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := next(c); err != nil {
				return err
			}
			if status := c.Response().Status; status < 200 || status >= 300 {
				return nil
			}
			// the client may hang up as soon as it has its answer
			n, err := purge(context.WithoutCancel(c.Request().Context()))
			if err != nil {
				log.Warn().Err(err).Str("path", c.Path()).Msg("cache purge after write failed")
				return nil
			}
			log.Debug().Int64("keys", n).Str("path", c.Path()).Msg("cache purged after write")
			return nil
		}
	}
}
