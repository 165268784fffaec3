package parser

import (
	"testing"

	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

const pageURL = "https://example.com/account/settings"

func TestParseForms_Basic(t *testing.T) {
	html := `
		<html><body>
		<form action="/update" method="POST" name="settings" id="settings-form">
			<input type="text" name="display_name" value="Alice">
			<input type="hidden" name="uid" value="42">
			<input type="submit" value="Save">
		</form>
		</body></html>
	`

	forms := ParseForms(pageURL, html)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1", len(forms))
	}

	f := forms[0]
	if f.Action != "https://example.com/update" {
		t.Errorf("Action = %q, want resolved /update", f.Action)
	}
	if f.Method != "post" {
		t.Errorf("Method = %q, want post", f.Method)
	}
	if f.Name != "settings" || f.ID != "settings-form" {
		t.Errorf("Name/ID = %q/%q", f.Name, f.ID)
	}
	if f.URL != pageURL {
		t.Errorf("URL = %q, want page URL", f.URL)
	}
	if f.SourceNode == "" {
		t.Error("SourceNode is empty")
	}
	if f.Fields["display_name"].Value != "Alice" {
		t.Errorf("display_name = %q, want Alice", f.Fields["display_name"].Value)
	}
	if f.Fields["uid"].Type != form.TypeHidden {
		t.Errorf("uid type = %q, want hidden", f.Fields["uid"].Type)
	}
}

func TestParseForms_Defaults(t *testing.T) {
	html := `<form><input name="q"></form>`

	forms := ParseForms(pageURL, html)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1", len(forms))
	}

	f := forms[0]
	if f.Action != pageURL {
		t.Errorf("empty action = %q, want page URL", f.Action)
	}
	if f.Method != "get" {
		t.Errorf("missing method = %q, want get", f.Method)
	}
	if spec := f.Fields["q"]; spec.Type != form.TypeText || spec.Value != "" {
		t.Errorf("q = %+v, want text type and empty value", spec)
	}
}

func TestParseForms_UnnamedSkipped(t *testing.T) {
	html := `
		<form action="/a">
			<input type="text" value="no name">
			<textarea>also no name</textarea>
			<select><option value="x">x</option></select>
			<input type="text" name="kept">
		</form>
	`

	forms := ParseForms(pageURL, html)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1", len(forms))
	}
	if len(forms[0].Fields) != 1 {
		t.Errorf("len(Fields) = %d, want only the named control", len(forms[0].Fields))
	}
	if _, ok := forms[0].Fields["kept"]; !ok {
		t.Error("named control missing")
	}
}

func TestParseForms_DuplicateNameLastWins(t *testing.T) {
	html := `
		<form action="/a">
			<input type="hidden" name="mode" value="first">
			<input type="text" name="mode" value="second">
		</form>
	`

	forms := ParseForms(pageURL, html)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1", len(forms))
	}
	spec := forms[0].Fields["mode"]
	if spec.Value != "second" || spec.Type != form.TypeText {
		t.Errorf("mode = %+v, want the last occurrence", spec)
	}
}

func TestParseForms_Select(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "selected option wins over first",
			html: `<form><select name="c"><option value="a">A</option><option value="b" selected>B</option></select></form>`,
			want: "b",
		},
		{
			name: "first option when nothing selected",
			html: `<form><select name="c"><option value="a">A</option><option value="b">B</option></select></form>`,
			want: "a",
		},
		{
			name: "option text when value attribute missing",
			html: `<form><select name="c"><option> Alpha </option></select></form>`,
			want: "Alpha",
		},
		{
			name: "no options",
			html: `<form><select name="c"></select></form>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forms := ParseForms(pageURL, tt.html)
			if len(forms) != 1 {
				t.Fatalf("len(forms) = %d, want 1", len(forms))
			}
			spec, ok := forms[0].Fields["c"]
			if !ok {
				t.Fatal("select field missing")
			}
			if spec.Type != form.TypeSelect {
				t.Errorf("type = %q, want select", spec.Type)
			}
			if spec.Value != tt.want {
				t.Errorf("value = %q, want %q", spec.Value, tt.want)
			}
		})
	}
}

func TestParseForms_Textarea(t *testing.T) {
	html := `<form><textarea name="bio"></textarea></form>`

	forms := ParseForms(pageURL, html)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1", len(forms))
	}
	spec := forms[0].Fields["bio"]
	if spec.Type != form.TypeTextarea {
		t.Errorf("type = %q, want textarea", spec.Type)
	}
	if spec.Value != "" {
		t.Errorf("value = %q, want empty", spec.Value)
	}
}

func TestParseForms_BaseHref(t *testing.T) {
	html := `
		<html><head><base href="https://cdn.example.org/app/"></head>
		<body><form action="submit"><input name="x"></form></body></html>
	`

	forms := ParseForms(pageURL, html)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1", len(forms))
	}
	if got := forms[0].Action; got != "https://cdn.example.org/app/submit" {
		t.Errorf("Action = %q, want resolved against base href", got)
	}
}

func TestParseForms_RelativeBaseHref(t *testing.T) {
	html := `
		<html><head><base href="/app/"></head>
		<body><form action="submit"><input name="x"></form></body></html>
	`

	forms := ParseForms(pageURL, html)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1", len(forms))
	}
	if got := forms[0].Action; got != "https://example.com/app/submit" {
		t.Errorf("Action = %q, want base resolved against page URL first", got)
	}
}

func TestParseForms_MultipleDocumentOrder(t *testing.T) {
	html := `
		<form action="/first"><input name="a"></form>
		<form action="/second"><input name="b"></form>
	`

	forms := ParseForms(pageURL, html)
	if len(forms) != 2 {
		t.Fatalf("len(forms) = %d, want 2", len(forms))
	}
	if forms[0].Action != "https://example.com/first" {
		t.Errorf("forms[0].Action = %q", forms[0].Action)
	}
	if forms[1].Action != "https://example.com/second" {
		t.Errorf("forms[1].Action = %q", forms[1].Action)
	}
}

func TestParseForms_MalformedMarkup(t *testing.T) {
	// Unclosed tags still yield a usable form; garbage yields none.
	forms := ParseForms(pageURL, `<form action="/a"><input name="x" value="1">`)
	if len(forms) != 1 {
		t.Fatalf("len(forms) = %d, want 1 from unclosed markup", len(forms))
	}
	if forms[0].Fields["x"].Value != "1" {
		t.Errorf("x = %q, want 1", forms[0].Fields["x"].Value)
	}

	if forms := ParseForms(pageURL, "just some text, no forms"); len(forms) != 0 {
		t.Errorf("len(forms) = %d, want 0", len(forms))
	}
}

func TestParseForms_EmptyMarkup(t *testing.T) {
	if forms := ParseForms(pageURL, ""); len(forms) != 0 {
		t.Errorf("len(forms) = %d, want 0", len(forms))
	}
}
