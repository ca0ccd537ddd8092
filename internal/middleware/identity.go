package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// UserIDHeader carries the caller's user id. Authentication happens in
// front of this service; the header is trusted as given.
const UserIDHeader = "X-User-ID"

const userIDKey = "user_id"

// Identity reads the caller's user id from UserIDHeader into the context.
// Requests without the header continue as anonymous; a malformed value is
// rejected with 400.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(c.Request().Header.Get(UserIDHeader))
			if raw == "" {
				return next(c)
			}
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{
					"error":   "validation_error",
					"message": UserIDHeader + " must be a positive integer",
				})
			}
			c.Set(userIDKey, id)
			return next(c)
		}
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := UserID(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error":   "unauthorized",
					"message": "missing " + UserIDHeader + " header",
				})
			}
			return next(c)
		}
	}
}

// UserID returns the caller's id set by Identity.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(userIDKey).(uint64)
	return id, ok && id > 0
}
