// Package parser extracts normalized forms from HTML markup.
package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

// ParseForms parses every form element found in the markup, in document
// order. Parsing is best-effort: markup that cannot be parsed at all
// yields an empty slice, never an error, and forms whose action cannot be
// resolved are still returned with whatever action text they carry.
func ParseForms(pageURL, markup string) []*form.Form {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	base := resolveBase(doc, pageURL)

	var forms []*form.Form
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		if f := parseForm(pageURL, base, sel); f != nil {
			forms = append(forms, f)
		}
	})
	return forms
}

// resolveBase returns the URL form actions resolve against: the document's
// <base href> when present and parseable, the page URL otherwise. A
// relative base href is itself resolved against the page URL first.
func resolveBase(doc *goquery.Document, pageURL string) *url.URL {
	page, pageErr := url.Parse(pageURL)
	if pageErr != nil {
		page = nil
	}

	href, ok := doc.Find("base[href]").First().Attr("href")
	if ok && strings.TrimSpace(href) != "" {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err == nil {
			if page != nil {
				return page.ResolveReference(ref)
			}
			if ref.IsAbs() {
				return ref
			}
		}
	}
	return page
}

func parseForm(pageURL string, base *url.URL, sel *goquery.Selection) *form.Form {
	if len(sel.Nodes) == 0 {
		return nil
	}
	formNode := sel.Nodes[0]

	action, _ := sel.Attr("action")
	method, _ := sel.Attr("method")

	fields := make(map[string]form.FieldSpec)

	// Document-order walk of the controls belonging to this form. Controls
	// that the markup nests under a different form element are skipped.
	sel.Find("input, textarea, select").Each(func(_ int, el *goquery.Selection) {
		if len(el.Nodes) == 0 || ownerForm(el.Nodes[0]) != formNode {
			return
		}

		if el.Is("select") {
			if spec, ok := parseSelect(el); ok {
				fields[spec.Name] = spec
			}
			return
		}

		attrs := attributesOf(el.Nodes[0])
		name := attrs["name"]
		if name == "" {
			// Unnamed controls are not submittable.
			return
		}

		typ := attrs["type"]
		if el.Is("textarea") {
			typ = form.TypeTextarea
		}
		if typ == "" {
			typ = form.TypeText
		}

		// Last occurrence wins on duplicate names.
		fields[name] = form.FieldSpec{
			Name:       name,
			Type:       typ,
			Value:      attrs["value"],
			Attributes: attrs,
		}
	})

	f := form.New(pageURL, resolveAction(base, pageURL, action), method, fields)
	f.Name, _ = sel.Attr("name")
	f.ID, _ = sel.Attr("id")
	if outer, err := goquery.OuterHtml(sel); err == nil {
		f.SourceNode = outer
	}
	return f
}

// parseSelect resolves a select element to a single field. The option
// marked selected wins; otherwise the first option is kept. An option
// without a value attribute contributes its text content.
func parseSelect(el *goquery.Selection) (form.FieldSpec, bool) {
	attrs := attributesOf(el.Nodes[0])
	name := attrs["name"]
	if name == "" {
		return form.FieldSpec{}, false
	}

	value := ""
	chosen := false
	el.Find("option").Each(func(_ int, opt *goquery.Selection) {
		val, hasVal := opt.Attr("value")
		if !hasVal {
			val = strings.TrimSpace(opt.Text())
		}
		if _, selected := opt.Attr("selected"); selected {
			value = val
			chosen = true
			return
		}
		if !chosen {
			value = val
			chosen = true
		}
	})

	return form.FieldSpec{
		Name:       name,
		Type:       form.TypeSelect,
		Value:      value,
		Attributes: attrs,
	}, true
}

// resolveAction converts a form action into an absolute URL. An empty
// action falls back to the page URL; an action that cannot be resolved is
// returned verbatim so the caller can still decide what to do with it.
func resolveAction(base *url.URL, pageURL, action string) string {
	action = strings.TrimSpace(action)
	if action == "" {
		return pageURL
	}

	ref, err := url.Parse(action)
	if err != nil || base == nil {
		return action
	}
	return base.ResolveReference(ref).String()
}

// ownerForm walks up to the nearest enclosing form element.
func ownerForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "form" {
			return p
		}
	}
	return nil
}

func attributesOf(n *html.Node) map[string]string {
	attrs := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		attrs[a.Key] = a.Val
	}
	return attrs
}
