// Package form defines the normalized form model the auditor mutates and
// submits. Forms are never shared mutably: every derivation goes through
// Clone so concurrent audit tasks cannot interfere.
package form

import (
	"sort"
	"strings"

	"github.com/PentesterFlow/OpenAuditor/internal/errors"
)

// Well-known field types. Anything the markup declares that is not listed
// here is carried through verbatim.
const (
	TypeText     = "text"
	TypeHidden   = "hidden"
	TypePassword = "password"
	TypeSelect   = "select"
	TypeTextarea = "textarea"
	TypeSubmit   = "submit"
	TypeButton   = "button"
	TypeFile     = "file"
	TypeCheckbox = "checkbox"
	TypeRadio    = "radio"
)

// FieldSpec is one named input within a form.
type FieldSpec struct {
	Name       string
	Type       string // defaults to "text"
	Value      string // defaults to ""
	Attributes map[string]string
}

// clone returns a deep copy of the field.
func (f FieldSpec) clone() FieldSpec {
	c := f
	if f.Attributes != nil {
		c.Attributes = make(map[string]string, len(f.Attributes))
		for k, v := range f.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

// AlterationState records which variant class a form belongs to.
type AlterationState int

const (
	// Clean is a freshly parsed form, not yet mutated.
	Clean AlterationState = iota
	// Original is a variant submitted with its default field values.
	Original
	// SampleFilled is a variant whose values were filled with plausible
	// type-aware samples.
	SampleFilled
	// Injected is a variant carrying a payload in one of its fields.
	Injected
)

// String returns the string representation of AlterationState.
func (s AlterationState) String() string {
	switch s {
	case Original:
		return "original"
	case SampleFilled:
		return "sample_filled"
	case Injected:
		return "injected"
	default:
		return "clean"
	}
}

// Form is one discovered HTML form, or a variant derived from one.
type Form struct {
	// URL is the page that contained the form.
	URL string
	// Action is the absolute submission URL. Never empty after
	// construction: it falls back to URL.
	Action string
	// Method is "get" or "post".
	Method string
	// Name and ID are the form-level identifiers from markup, if any.
	Name string
	ID   string
	// Fields maps field name to its spec. Insertion order is not
	// significant; orderings used by the auditor are derived by sorting.
	Fields map[string]FieldSpec
	// State records the variant class of this instance.
	State AlterationState
	// SourceNode holds the serialized markup fragment the form was parsed
	// from, used only to regenerate the form after a refresh.
	SourceNode string

	// nonceField, once set, stays set for the lifetime of this instance.
	// Clones inherit it; a fresh parse must re-derive it.
	nonceField string
}

// New creates a form from a caller-supplied field map. The action falls
// back to the page URL when empty.
func New(pageURL, action, method string, fields map[string]FieldSpec) *Form {
	f := &Form{
		URL:    pageURL,
		Action: action,
		Method: NormalizeMethod(method),
		Fields: make(map[string]FieldSpec, len(fields)),
		State:  Clean,
	}
	if f.Action == "" {
		f.Action = pageURL
	}
	for name, spec := range fields {
		if spec.Name == "" {
			spec.Name = name
		}
		if spec.Type == "" {
			spec.Type = TypeText
		}
		f.Fields[name] = spec.clone()
	}
	return f
}

// NormalizeMethod maps a raw method attribute onto the get/post enum.
// Anything that is not post submits as get, matching browser behavior.
func NormalizeMethod(method string) string {
	if strings.EqualFold(strings.TrimSpace(method), "post") {
		return "post"
	}
	return "get"
}

// Clone returns a deep copy. The nonce configuration carries over.
func (f *Form) Clone() *Form {
	c := &Form{
		URL:        f.URL,
		Action:     f.Action,
		Method:     f.Method,
		Name:       f.Name,
		ID:         f.ID,
		Fields:     make(map[string]FieldSpec, len(f.Fields)),
		State:      f.State,
		SourceNode: f.SourceNode,
		nonceField: f.nonceField,
	}
	for name, spec := range f.Fields {
		c.Fields[name] = spec.clone()
	}
	return c
}

// WithState returns a clone in the given alteration state.
func (f *Form) WithState(state AlterationState) *Form {
	c := f.Clone()
	c.State = state
	return c
}

// WithFieldValue returns a clone with one field's value replaced. Unknown
// names return the clone unchanged; variant generation treats a missing
// field as "no variant", never as an error.
func (f *Form) WithFieldValue(name, value string) *Form {
	c := f.Clone()
	if spec, ok := c.Fields[name]; ok {
		spec.Value = value
		c.Fields[name] = spec
	}
	return c
}

// SetValue overwrites a field value in place. Only valid on instances
// owned exclusively by the caller (freshly cloned variants).
func (f *Form) SetValue(name, value string) error {
	spec, ok := f.Fields[name]
	if !ok {
		return errors.NewFieldNotFoundError(f.Action, name)
	}
	spec.Value = value
	f.Fields[name] = spec
	return nil
}

// SetNonceField marks the named field as a single-use token that must be
// refreshed before every submission. The name must exist among Fields.
func (f *Form) SetNonceField(name string) error {
	if _, ok := f.Fields[name]; !ok {
		return errors.NewFieldNotFoundError(f.Action, name)
	}
	f.nonceField = name
	return nil
}

// NonceField returns the configured nonce field name, or "".
func (f *Form) NonceField() string {
	return f.nonceField
}

// RequiresSyncDispatch reports whether this form must be submitted in
// blocking mode. True whenever a nonce field is configured: overlapping
// refreshes for the same form would invalidate each other's tokens.
func (f *Form) RequiresSyncDispatch() bool {
	return f.nonceField != ""
}

// FieldNames returns the field names in sorted order.
func (f *Form) FieldNames() []string {
	names := make([]string, 0, len(f.Fields))
	for name := range f.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PasswordFields returns the names of password-typed fields, sorted.
func (f *Form) PasswordFields() []string {
	var names []string
	for name, spec := range f.Fields {
		if spec.Type == TypePassword {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// StructuralKey returns a key over action, method and the complete
// name/value mapping. Two forms with equal keys are the same submission.
func (f *Form) StructuralKey() string {
	var b strings.Builder
	b.WriteString(f.Action)
	b.WriteByte(0)
	b.WriteString(f.Method)
	for _, name := range f.FieldNames() {
		b.WriteByte(0)
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(f.Fields[name].Value)
	}
	return b.String()
}

// Values returns the submittable name/value pairs.
func (f *Form) Values() map[string]string {
	values := make(map[string]string, len(f.Fields))
	for name, spec := range f.Fields {
		values[name] = spec.Value
	}
	return values
}
