package nonce

import (
	"strings"

	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

// tokenPatterns match the hidden-field names frameworks use for
// anti-CSRF and single-use tokens.
var tokenPatterns = []string{
	"csrf",
	"_csrf",
	"csrftoken",
	"csrf_token",
	"csrfmiddlewaretoken",
	"__requestverificationtoken",
	"authenticity_token",
	"_token",
	"xsrf",
	"_xsrf",
	"antiforgery",
	"nonce",
	"_wpnonce",
}

// DetectField returns the name of a hidden field that looks like a
// single-use token, so the scanner can configure it as the form's nonce
// field automatically.
func DetectField(f *form.Form) (string, bool) {
	for _, name := range f.FieldNames() {
		spec := f.Fields[name]
		if spec.Type != form.TypeHidden {
			continue
		}

		nameLower := strings.ToLower(name)
		for _, pattern := range tokenPatterns {
			if strings.Contains(nameLower, pattern) {
				return name, true
			}
		}
	}
	return "", false
}
