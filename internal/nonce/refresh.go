// Package nonce forces a blocking re-fetch-and-extract cycle before
// submitting forms that carry a single-use token field.
package nonce

import (
	"context"

	"github.com/PentesterFlow/OpenAuditor/internal/audit"
	"github.com/PentesterFlow/OpenAuditor/internal/errors"
	"github.com/PentesterFlow/OpenAuditor/internal/form"
	"github.com/PentesterFlow/OpenAuditor/internal/logger"
	"github.com/PentesterFlow/OpenAuditor/internal/parser"
)

// Fetcher retrieves a page body. The plain HTTP client satisfies this;
// so does the headless-browser fetcher for JS-rendered pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Coordinator refreshes nonce fields immediately before dispatch.
type Coordinator struct {
	fetcher Fetcher
	log     *logger.Logger
}

// NewCoordinator creates a coordinator using the given fetcher.
func NewCoordinator(fetcher Fetcher, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		fetcher: fetcher,
		log:     log.WithComponent("nonce"),
	}
}

// Prepare makes a form ready for dispatch. Forms without a nonce field
// pass through untouched. For a form with one, the page that contained it
// is synchronously refetched, the matching form located by canonical
// identity, and the fresh token value written into the outgoing instance.
// When no matching form can be found — including fetch errors and
// timeouts — Prepare fails and the dispatch must be skipped: a stale
// nonce would be rejected server-side and corrupt the test result.
func (c *Coordinator) Prepare(ctx context.Context, f *form.Form) error {
	nonceField := f.NonceField()
	if nonceField == "" {
		return nil
	}

	body, err := c.fetcher.Fetch(ctx, f.URL)
	if err != nil {
		return errors.NewNonceRefreshError(f.Action, "refetch failed", err)
	}

	wantID := audit.ComputeID(f)
	for _, fresh := range parser.ParseForms(f.URL, body) {
		if audit.ComputeID(fresh) != wantID {
			continue
		}
		spec, ok := fresh.Fields[nonceField]
		if !ok {
			continue
		}

		if err := f.SetValue(nonceField, spec.Value); err != nil {
			return errors.NewNonceRefreshError(f.Action, "nonce field vanished from form", err)
		}
		c.log.WithAction(f.Action).Debugf("refreshed nonce field %q", nonceField)
		return nil
	}

	return errors.NewNonceRefreshError(f.Action, "no matching form on refetched page", nil)
}
