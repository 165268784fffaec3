package nonce

import (
	"context"
	"fmt"
	"testing"

	"github.com/PentesterFlow/OpenAuditor/internal/errors"
	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

// fakeFetcher serves a canned body and counts calls.
type fakeFetcher struct {
	body  string
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.body, nil
}

func nonceForm(t *testing.T) *form.Form {
	t.Helper()
	f := form.New("https://example.com/login", "https://example.com/do-login", "post",
		map[string]form.FieldSpec{
			"username": {Name: "username", Type: form.TypeText},
			"password": {Name: "password", Type: form.TypePassword},
			"csrf":     {Name: "csrf", Type: form.TypeHidden, Value: "stale-token"},
		})
	if err := f.SetNonceField("csrf"); err != nil {
		t.Fatalf("SetNonceField() error = %v", err)
	}
	return f
}

const freshPage = `
	<form action="/do-login" method="post">
		<input type="text" name="username">
		<input type="password" name="password">
		<input type="hidden" name="csrf" value="fresh-token">
	</form>
`

func TestPrepare_NoNonceField(t *testing.T) {
	fetcher := &fakeFetcher{}
	c := NewCoordinator(fetcher, nil)

	f := form.New("https://example.com/x", "", "get",
		map[string]form.FieldSpec{"q": {Name: "q"}})

	if err := c.Prepare(context.Background(), f); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0 for a nonce-free form", fetcher.calls)
	}
}

func TestPrepare_RefreshesToken(t *testing.T) {
	fetcher := &fakeFetcher{body: freshPage}
	c := NewCoordinator(fetcher, nil)

	f := nonceForm(t)
	if err := c.Prepare(context.Background(), f); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	if got := f.Fields["csrf"].Value; got != "fresh-token" {
		t.Errorf("csrf = %q, want fresh-token", got)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", fetcher.calls)
	}
}

func TestPrepare_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("connection refused")}
	c := NewCoordinator(fetcher, nil)

	f := nonceForm(t)
	err := c.Prepare(context.Background(), f)
	if err == nil {
		t.Fatal("Prepare() succeeded despite fetch error")
	}
	if !errors.IsNonceRefresh(err) {
		t.Errorf("error = %v, want nonce refresh type", err)
	}
	if f.Fields["csrf"].Value != "stale-token" {
		t.Error("failed refresh modified the token")
	}
}

func TestPrepare_NoMatchingForm(t *testing.T) {
	// The refetched page carries a form with a different field set, so its
	// canonical identity does not match.
	fetcher := &fakeFetcher{body: `
		<form action="/do-login" method="post">
			<input type="text" name="username">
			<input type="hidden" name="csrf" value="fresh-token">
		</form>
	`}
	c := NewCoordinator(fetcher, nil)

	err := c.Prepare(context.Background(), nonceForm(t))
	if err == nil {
		t.Fatal("Prepare() succeeded with no matching form")
	}
	if !errors.IsNonceRefresh(err) {
		t.Errorf("error = %v, want nonce refresh type", err)
	}
}

func TestPrepare_MatchByIdentityNotPosition(t *testing.T) {
	// The matching form is not the first on the page.
	fetcher := &fakeFetcher{body: `
		<form action="/search" method="get"><input name="q"></form>
	` + freshPage}
	c := NewCoordinator(fetcher, nil)

	f := nonceForm(t)
	if err := c.Prepare(context.Background(), f); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if got := f.Fields["csrf"].Value; got != "fresh-token" {
		t.Errorf("csrf = %q, want fresh-token", got)
	}
}

func TestDetectField(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]form.FieldSpec
		want   string
		found  bool
	}{
		{
			name: "csrf hidden field",
			fields: map[string]form.FieldSpec{
				"user":       {Name: "user", Type: form.TypeText},
				"csrf_token": {Name: "csrf_token", Type: form.TypeHidden},
			},
			want:  "csrf_token",
			found: true,
		},
		{
			name: "wordpress nonce",
			fields: map[string]form.FieldSpec{
				"_wpnonce": {Name: "_wpnonce", Type: form.TypeHidden},
			},
			want:  "_wpnonce",
			found: true,
		},
		{
			name: "rails authenticity token",
			fields: map[string]form.FieldSpec{
				"authenticity_token": {Name: "authenticity_token", Type: form.TypeHidden},
			},
			want:  "authenticity_token",
			found: true,
		},
		{
			name: "token named but not hidden",
			fields: map[string]form.FieldSpec{
				"csrf": {Name: "csrf", Type: form.TypeText},
			},
			found: false,
		},
		{
			name: "nothing token-like",
			fields: map[string]form.FieldSpec{
				"user": {Name: "user", Type: form.TypeText},
				"ref":  {Name: "ref", Type: form.TypeHidden},
			},
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := form.New("https://example.com/x", "", "post", tt.fields)
			got, found := DetectField(f)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("DetectField() = %q, want %q", got, tt.want)
			}
		})
	}
}
