package content

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	slugStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	slugCollapse = regexp.MustCompile(`[\s_-]+`)
)

// Slug lowercases text, drops everything but word characters, whitespace
// and hyphens, collapses separator runs into one hyphen and trims hyphens
// from both ends.
func Slug(text string) string {
	s := strings.ToLower(text)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Key is the document lookup key of a topic: its label slug and node id.
func Key(label, id string) string {
	return Slug(label) + "@" + id
}

// CategoryName turns a roadmap name such as "engineering-manager" into a
// display label ("Engineering Manager").
func CategoryName(roadmap string) string {
	s := strings.ReplaceAll(roadmap, "-", " ")
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
