// Package extract reduces free-form listing text to normalized hardware
// fields. Extraction is deterministic and stateless: each field runs an
// ordered pattern cascade, first over the text following a known label
// ("Процессор:", "Видеокарта:", ...), then over the full text. No match
// yields an empty string, never an error.
package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// cascade is an ordered extraction attempt list scoped by an optional
// field label. The label restricts the first pass to the text between
// the label and the next line or tab boundary.
type cascade struct {
	label    *regexp.Regexp
	patterns []*regexp.Regexp
}

// find returns the first pattern hit, preferring the labeled segment.
func (c cascade) find(text string) string {
	if m := c.label.FindStringSubmatch(text); m != nil {
		for _, p := range c.patterns {
			if hit := p.FindString(m[1]); hit != "" {
				return hit
			}
		}
	}
	for _, p := range c.patterns {
		if hit := p.FindString(text); hit != "" {
			return hit
		}
	}
	return ""
}

var dashFolder = strings.NewReplacer("–", "-", "—", "-")

// prepare canonicalizes listing text before matching: NFC form (VK text
// mixes composed and decomposed Cyrillic) and a single dash variant.
func prepare(text string) string {
	return dashFolder.Replace(norm.NFC.String(text))
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
