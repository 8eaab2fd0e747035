package proxy

import (
	"net/http"
	"strings"
)

// sanitizedHeaders are removed from every outbound request so the upstream
// sees the client as if it had connected directly.
var sanitizedHeaders = []string{
	"Via",
	"X-Forwarded-For",
	"X-Forwarded-Proto",
	"X-Forwarded-Host",
	"X-Forwarded-Server",
	"Origin",
}

// SanitizeHeaders removes the sanitized headers from h regardless of the
// case their keys are stored with. All other headers are left untouched.
func SanitizeHeaders(h http.Header) {
	for key := range h {
		for _, name := range sanitizedHeaders {
			if strings.EqualFold(key, name) {
				delete(h, key)
				break
			}
		}
	}
}
