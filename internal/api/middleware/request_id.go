package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const requestIDKey = "requestID"

// RequestID assigns every request a fresh uuid and echoes it in the
// X-Request-ID response header. An inbound X-Request-ID is ignored.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := uuid.NewString()
			c.Set(requestIDKey, id)
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// RequestIDFrom returns the id RequestID assigned, if it ran.
func RequestIDFrom(c echo.Context) (string, bool) {
	id, ok := c.Get(requestIDKey).(string)
	return id, ok && id != ""
}
