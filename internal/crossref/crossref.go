// Package crossref finds the issues a piece of free text refers to, such
// as a commit message or a pull request description.
package crossref

import (
	"regexp"
	"strings"
)

// refPattern matches either a URL or a bare issue key (e.g. PROJ-123).
var refPattern = regexp.MustCompile(`https?://[^\s<>"'\])]+|\b[A-Z][A-Z0-9]+-\d+\b`)

var keyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]+-\d+$`)

// KeyResolver maps a URL onto an issue key. ok is false for URLs that are
// not issue links.
type KeyResolver func(url string) (key string, ok bool)

// Extract returns the issue keys referenced in text, deduplicated and in
// order of first occurrence. Bare keys are always taken. URLs count only
// when resolve accepts them and the resolved path starts with an issue key,
// so links to other hosts or to non-issue pages are ignored. A nil resolve
// ignores every URL.
func Extract(text string, resolve KeyResolver) []string {
	matches := refPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		key := m
		if strings.HasPrefix(m, "http://") || strings.HasPrefix(m, "https://") {
			if resolve == nil {
				continue
			}
			var ok bool
			key, ok = resolve(strings.TrimRight(m, ".,;:!?"))
			if !ok {
				continue
			}
			// Browse links often carry a query, a fragment or a trailing
			// slash after the key.
			if i := strings.IndexAny(key, "?#/"); i >= 0 {
				key = key[:i]
			}
			if !keyPattern.MatchString(key) {
				continue
			}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, key)
	}
	return result
}
