package logging

import (
	"regexp"
	"strings"
)

// Redactor masks the values of sensitive query and form fields, such as
// "api_token=abc123" in a logged URI, and bearer tokens.
type Redactor struct {
	patterns []*regexp.Regexp
}

var bearerPattern = regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`)

// NewRedactor creates a Redactor for the given field names. Names are
// matched case-insensitively.
func NewRedactor(fields []string) *Redactor {
	r := &Redactor{}
	for _, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		r.patterns = append(r.patterns,
			regexp.MustCompile(`(?i)(^|[?&;\s"])(`+regexp.QuoteMeta(field)+`)=([^&;\s"]*)`))
	}
	return r
}

// RedactString returns value with every sensitive field value replaced by
// "***".
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.ReplaceAllString(value, "${1}${2}=***")
	}
	if strings.Contains(value, "Bearer") {
		value = bearerPattern.ReplaceAllString(value, "Bearer ***")
	}
	return value
}
