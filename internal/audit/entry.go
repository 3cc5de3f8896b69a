// Package audit records one entry per API request. Entries are handed to a
// background queue when it is reachable and written directly otherwise.
// Nothing here ever fails the request being audited.
package audit

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"

	"scopedrest/internal/models"
)

const redacted = "[REDACTED]"

// sensitiveHeaders are replaced before an entry leaves the process.
var sensitiveHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"X-Api-Key":           true,
	"Proxy-Authorization": true,
}

// Entry is the request/response pair of one API call.
type Entry struct {
	APIKeyID    *string             `json:"api_key_id"`
	RequestUUID string              `json:"request_uuid"`
	Method      string              `json:"method"`
	URL         string              `json:"url"`
	Headers     map[string][]string `json:"headers"`
	IP          string              `json:"ip"`
	Status      int                 `json:"status"`
	Body        string              `json:"body"`
	Truncated   bool                `json:"truncated"`
	At          time.Time           `json:"at"`
}

// RedactHeaders copies h with credentials masked.
func RedactHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		key := http.CanonicalHeaderKey(k)
		if sensitiveHeaders[key] {
			out[key] = []string{redacted}
			continue
		}
		out[key] = append([]string(nil), v...)
	}
	return out
}

// Truncate cuts body to at most max bytes without splitting a rune.
func Truncate(body []byte, max int) (string, bool) {
	if max <= 0 || len(body) <= max {
		return strings.ToValidUTF8(string(body), "�"), false
	}
	cut := body[:max]
	for len(cut) > 0 && !utf8.Valid(cut) {
		cut = cut[:len(cut)-1]
	}
	return strings.ToValidUTF8(string(cut), "�"), true
}

// Model converts e into its database row.
func (e Entry) Model() (*models.AuditLog, error) {
	headers, err := json.Marshal(e.Headers)
	if err != nil {
		return nil, err
	}
	return &models.AuditLog{
		APIKeyID:    e.APIKeyID,
		RequestUUID: e.RequestUUID,
		Method:      e.Method,
		URL:         e.URL,
		Headers:     datatypes.JSON(headers),
		IP:          e.IP,
		Status:      e.Status,
		Body:        e.Body,
		Truncated:   e.Truncated,
		CreatedAt:   e.At,
	}, nil
}
