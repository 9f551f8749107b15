// Package normalize cleans raw extracted document text before chunking.
package normalize

import (
	"regexp"
	"strings"
)

var (
	spaceRunRe       = regexp.MustCompile(` {2,}`)
	spaceBeforePunct = regexp.MustCompile(` ([,.;!?])`)
	spaceAfterOpen   = regexp.MustCompile(`([“‘]) `)
	spaceBeforeClose = regexp.MustCompile(` ([”’])`)
	newlineRe        = regexp.MustCompile(`\r\n|\r|\n`)
	// PDF extraction often splits contractions: "don' t", "we' re".
	contractionRe = regexp.MustCompile(`(\p{L}) ?' ((?i:s|t|d|m|ll|re|ve))\b`)
	urlRe         = regexp.MustCompile(`(?:http|www\.)\S+`)

	quoteReplacer = strings.NewReplacer("“", "", "”", "", "‘", "'", "’", "'")
	nbspReplacer  = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\u2007", " ")
)

// Text applies the cleanup rules in a fixed order; later rules rely on earlier ones.
// It is pure and never fails: bytes that are not valid UTF-8 are left untouched.
func Text(raw string) string {
	s := spaceRunRe.ReplaceAllString(raw, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = spaceAfterOpen.ReplaceAllString(s, "$1")
	s = spaceBeforeClose.ReplaceAllString(s, "$1")
	s = newlineRe.ReplaceAllString(s, " ")
	s = quoteReplacer.Replace(s)
	s = nbspReplacer.Replace(s)
	s = contractionRe.ReplaceAllString(s, "$1'$2")
	s = urlRe.ReplaceAllString(s, "")
	return s
}

// Pages normalizes every page of a document, preserving order.
func Pages(pages []string) []string {
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = Text(p)
	}
	return out
}
