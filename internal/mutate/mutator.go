// Package mutate turns one form into the set of submission variants that
// probe it for injection flaws.
package mutate

import (
	"github.com/PentesterFlow/OpenAuditor/internal/form"
	"github.com/PentesterFlow/OpenAuditor/internal/logger"
)

// Options controls variant generation.
type Options struct {
	// SkipOriginal drops the Original and SampleFilled variant classes.
	SkipOriginal bool
	// SkipFields names fields the per-field strategy must leave alone
	// (locked as non-fuzzable by the caller's policy).
	SkipFields []string
}

// Strategy is the per-field mutation policy: it decides which fields
// receive the seed and yields one injected clone per chosen field.
type Strategy interface {
	BaseMutate(f *form.Form, seed string, opts Options) []*form.Form
}

// Filler picks plausible values for typed fields.
type Filler interface {
	Fill(fields map[string]form.FieldSpec) map[string]string
}

// Mutator produces the ordered, de-duplicated variant set for a seed.
type Mutator struct {
	strategy Strategy
	filler   Filler
	log      *logger.Logger
}

// NewMutator creates a mutator. Nil strategy or filler fall back to the
// in-package defaults.
func NewMutator(strategy Strategy, filler Filler, log *logger.Logger) *Mutator {
	if strategy == nil {
		strategy = NewFieldStrategy()
	}
	if filler == nil {
		filler = NewSampleFiller()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Mutator{
		strategy: strategy,
		filler:   filler,
		log:      log.WithComponent("mutator"),
	}
}

// Generate returns the variant set for one seed payload. The source form
// is never modified; every variant is an independent clone. The result is
// de-duplicated by full structural equality, first-seen order preserved.
func (m *Mutator) Generate(f *form.Form, seed string, opts Options) []*form.Form {
	variants := m.strategy.BaseMutate(f, seed, opts)

	if !opts.SkipOriginal {
		// The Original variant probes whether the form's default values
		// already constitute exploitable input.
		variants = append(variants, f.WithState(form.Original))

		sample := f.WithState(form.SampleFilled)
		for name, value := range m.filler.Fill(f.Fields) {
			_ = sample.SetValue(name, value)
		}
		variants = append(variants, sample)
	}

	m.mirrorPasswords(f, variants)

	deduped := dedupeStructural(variants)

	m.log.Debugf("generated %d variants (%d after dedup) for %s",
		len(variants), len(deduped), f.Action)
	return deduped
}

// mirrorPasswords forces the second password field to match the first
// across every variant, but only when the form has exactly two password
// fields. Confirmation fields are validated server-side for equality;
// mismatched values would be rejected before the payload is evaluated.
// Zero, one, or three-plus password fields leave the variants untouched.
func (m *Mutator) mirrorPasswords(f *form.Form, variants []*form.Form) {
	passwords := f.PasswordFields()
	if len(passwords) != 2 {
		return
	}

	first, second := passwords[0], passwords[1]
	for _, v := range variants {
		if spec, ok := v.Fields[first]; ok {
			_ = v.SetValue(second, spec.Value)
		}
	}
}

func dedupeStructural(variants []*form.Form) []*form.Form {
	seen := make(map[string]struct{}, len(variants))
	out := variants[:0]
	for _, v := range variants {
		key := v.StructuralKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
