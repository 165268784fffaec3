// Package audit provides canonical form identity and the shared record of
// audit targets already dispatched in a scan run.
package audit

import (
	"net/url"
	"sort"
	"strings"

	"github.com/PentesterFlow/OpenAuditor/internal/form"
)

// ComputeID returns the canonical identity of a form under its own field
// set. Two forms with the same ID are the same audit target.
func ComputeID(f *form.Form) string {
	return ComputeIDWithParams(f, f.FieldNames())
}

// ComputeIDWithParams computes the canonical identity under an alternate
// parameter projection. The identity is built from the action path with
// the query string and any path parameters stripped, the method, and the
// sorted, deduplicated union of the action's own query parameter names
// with the supplied names. Field values never participate: forms that
// differ only in values collide, by design of the at-most-once audit.
func ComputeIDWithParams(f *form.Form, paramNames []string) string {
	names := make(map[string]struct{}, len(paramNames))
	for _, name := range paramNames {
		names[name] = struct{}{}
	}
	for _, name := range actionQueryNames(f.Action) {
		names[name] = struct{}{}
	}

	merged := make([]string, 0, len(names))
	for name := range names {
		merged = append(merged, name)
	}
	sort.Strings(merged)

	var b strings.Builder
	b.WriteString(actionPath(f.Action))
	b.WriteString("::")
	b.WriteString(strings.ToLower(f.Method))
	b.WriteString("::")
	b.WriteString(strings.Join(merged, ","))
	return b.String()
}

// actionPath strips the query string and any path parameters (the
// ";jsessionid=..." style segment) from an action URL.
func actionPath(action string) string {
	if i := strings.IndexByte(action, '?'); i >= 0 {
		action = action[:i]
	}
	if i := strings.IndexByte(action, ';'); i >= 0 {
		action = action[:i]
	}
	return action
}

// actionQueryNames re-parses the parameter names out of the action's own
// query string.
func actionQueryNames(action string) []string {
	i := strings.IndexByte(action, '?')
	if i < 0 {
		return nil
	}
	values, err := url.ParseQuery(action[i+1:])
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	return names
}
