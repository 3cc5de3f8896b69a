package middleware

import (
	"net/http"

	"scopedrest/internal/models"
)

// ActionForMethod returns the policy action an HTTP method needs. The API is
// read-only, so only safe methods map to an action.
func ActionForMethod(method string) (string, bool) {
	switch method {
	case http.MethodGet, http.MethodHead:
		return models.ActionRead, true
	default:
		return "", false
	}
}
