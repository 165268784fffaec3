package mutate

import (
	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

// FieldStrategy is the default per-field mutation policy: one injected
// clone per fuzzable field, with the field's value replaced by the seed.
// Submit and button controls carry no attacker-controlled input and are
// never injected.
type FieldStrategy struct{}

// NewFieldStrategy creates the default strategy.
func NewFieldStrategy() *FieldStrategy {
	return &FieldStrategy{}
}

// BaseMutate implements Strategy. Fields are visited in sorted-name order
// so output is deterministic.
func (s *FieldStrategy) BaseMutate(f *form.Form, seed string, opts Options) []*form.Form {
	skip := make(map[string]struct{}, len(opts.SkipFields))
	for _, name := range opts.SkipFields {
		skip[name] = struct{}{}
	}

	var variants []*form.Form
	for _, name := range f.FieldNames() {
		if _, locked := skip[name]; locked {
			continue
		}
		switch f.Fields[name].Type {
		case form.TypeSubmit, form.TypeButton:
			continue
		}

		v := f.WithFieldValue(name, seed)
		v.State = form.Injected
		variants = append(variants, v)
	}
	return variants
}
