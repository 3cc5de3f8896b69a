package middleware

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"scopedrest/internal/audit"
)

// AuditSink takes ownership of an entry once the response is written.
type AuditSink interface {
	Go(e audit.Entry)
}

// AuditConfig configures AuditMiddleware.
type AuditConfig struct {
	// PathPrefix limits capture to API routes.
	PathPrefix   string
	MaxBodyBytes int
}

// AuditMiddleware captures the final status and body of every request under
// PathPrefix, including ones rejected by later middleware, and hands one
// entry per request to sink.
func AuditMiddleware(sink AuditSink, cfg AuditConfig) echo.MiddlewareFunc {
	return echomw.BodyDumpWithConfig(echomw.BodyDumpConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, cfg.PathPrefix)
		},
		Handler: func(c echo.Context, _, resBody []byte) {
			sink.Go(entryFor(c, resBody, cfg.MaxBodyBytes))
		},
	})
}

func entryFor(c echo.Context, resBody []byte, maxBody int) audit.Entry {
	req := c.Request()
	res := c.Response()

	requestID, ok := RequestIDFrom(c)
	if !ok {
		requestID = uuid.NewString()
	}

	body, truncated := audit.Truncate(resBody, maxBody)
	e := audit.Entry{
		RequestUUID: requestID,
		Method:      req.Method,
		URL:         req.URL.RequestURI(),
		Headers:     audit.RedactHeaders(req.Header),
		IP:          c.RealIP(),
		Status:      res.Status,
		Body:        body,
		Truncated:   truncated,
		At:          time.Now().UTC(),
	}
	if key, ok := IdentityFrom(c); ok {
		id := key.ID
		e.APIKeyID = &id
	}
	return e
}
