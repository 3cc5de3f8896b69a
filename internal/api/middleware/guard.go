package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"scopedrest/internal/apierr"
	"scopedrest/internal/filter"
	"scopedrest/internal/guard"
	"scopedrest/internal/metrics"
	"scopedrest/internal/utils/logger"
)

var guardLog = logger.New("guard_middleware")

// guardedParams are checked verbatim alongside the parsed filter leaves.
var guardedParams = []string{"select", "include", "sort", "order"}

// GuardMiddleware rejects requests whose filter, projection or sort
// parameters carry an injection signature. It runs before the resource is
// resolved.
func GuardMiddleware(g *guard.Guard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			query := c.QueryParams()

			values := filter.Parse(query.Get("q")).Leaves
			for _, name := range guardedParams {
				values = append(values, query[name]...)
			}

			if err := g.CheckAll(values); err != nil {
				var v *guard.Violation
				if errors.As(err, &v) {
					metrics.RecordGuardRejection(string(v.Signature))
					guardLog.Warn("rejected %s %s: %s", c.Request().Method, c.Path(), v.Signature)
				}
				return apierr.BadRequest("request rejected")
			}
			return next(c)
		}
	}
}
