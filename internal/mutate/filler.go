package mutate

import (
	"strings"

	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

// SampleFiller picks plausible values for typed fields: numeric fields
// get a number, email fields a syntactically valid address, and so on.
// Hidden fields keep their existing value so tokens and state carriers
// survive the fill.
type SampleFiller struct{}

// NewSampleFiller creates the default filler.
func NewSampleFiller() *SampleFiller {
	return &SampleFiller{}
}

// Fill implements Filler.
func (sf *SampleFiller) Fill(fields map[string]form.FieldSpec) map[string]string {
	values := make(map[string]string, len(fields))

	for name, spec := range fields {
		switch spec.Type {
		case form.TypeHidden, form.TypeSubmit, form.TypeButton:
			values[name] = spec.Value
		case form.TypeCheckbox, form.TypeRadio:
			if spec.Value != "" {
				values[name] = spec.Value
			} else {
				values[name] = "on"
			}
		case form.TypeSelect:
			// The parser already resolved the selected option.
			values[name] = spec.Value
		case form.TypePassword:
			values[name] = "TestPassword123!"
		case "email":
			values[name] = "test@example.com"
		case "number", "range":
			values[name] = "42"
		case "tel":
			values[name] = "+1234567890"
		case "url":
			values[name] = "https://example.com"
		case "date":
			values[name] = "2024-01-15"
		case "time":
			values[name] = "12:00"
		case "datetime-local":
			values[name] = "2024-01-15T12:00"
		case form.TypeTextarea:
			values[name] = "This is a sample message."
		default:
			values[name] = textValueFor(name)
		}
	}

	return values
}

// textValueFor guesses a plausible value for a free-text field from its
// name.
func textValueFor(name string) string {
	nameLower := strings.ToLower(name)

	switch {
	case strings.Contains(nameLower, "mail"):
		return "test@example.com"
	case strings.Contains(nameLower, "user"):
		return "testuser"
	case strings.Contains(nameLower, "name"):
		return "John Doe"
	case strings.Contains(nameLower, "phone"):
		return "+1234567890"
	case strings.Contains(nameLower, "address"):
		return "123 Test Street"
	case strings.Contains(nameLower, "city"):
		return "Test City"
	case strings.Contains(nameLower, "zip"), strings.Contains(nameLower, "postal"):
		return "12345"
	case strings.Contains(nameLower, "country"):
		return "US"
	case strings.Contains(nameLower, "age"), strings.Contains(nameLower, "year"):
		return "42"
	}

	return "test"
}
