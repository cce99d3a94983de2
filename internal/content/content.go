// Package content turns a topic's markdown document into a plain-text
// description and a list of resource links.
package content

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

var (
	inlineLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	bareURL    = regexp.MustCompile(`https?://[^\s)]+`)
)

// ResourceSeparator joins resource URLs. URLs containing it are not
// escaped.
const ResourceSeparator = "|"

// Parsed is the extracted content of one document.
type Parsed struct {
	Description string `json:"description"`
	Resources   string `json:"resources"`
}

// Parse extracts the description and resources of doc. An empty document
// yields an empty Parsed.
func Parse(doc string) Parsed {
	if doc == "" {
		return Parsed{}
	}
	return Parsed{
		Description: Description(doc),
		Resources:   strings.Join(Resources(doc), ResourceSeparator),
	}
}

// Description joins every non-empty, non-heading line of doc with single
// spaces, with inline links replaced by their text.
func Description(doc string) string {
	var parts []string
	for _, line := range strings.Split(doc, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts = append(parts, inlineLink.ReplaceAllString(line, "$1"))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Resources returns the http(s) URLs of doc, both inline link targets
// and bare URLs, in order of first appearance without duplicates.
func Resources(doc string) []string {
	type hit struct {
		pos int
		url string
	}
	var hits []hit
	for _, m := range inlineLink.FindAllStringSubmatchIndex(doc, -1) {
		u := doc[m[4]:m[5]]
		if strings.HasPrefix(u, "http") {
			hits = append(hits, hit{m[4], u})
		}
	}
	for _, m := range bareURL.FindAllStringIndex(doc, -1) {
		hits = append(hits, hit{m[0], doc[m[0]:m[1]]})
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return cmp.Compare(a.pos, b.pos) })

	seen := make(map[string]struct{}, len(hits))
	var out []string
	for _, h := range hits {
		if _, ok := seen[h.url]; ok {
			continue
		}
		seen[h.url] = struct{}{}
		out = append(out, h.url)
	}
	return out
}
