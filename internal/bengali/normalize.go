package bengali

import (
	"regexp"
	"strings"
	"unicode"
)

// Normalize applies the rule table once, in order.
func Normalize(text string) string {
	if text == "" {
		return text
	}
	for _, r := range rules {
		text = strings.ReplaceAll(text, r.Incorrect, r.Correct)
	}
	return text
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	spaceRuns  = regexp.MustCompile(` +`)
)

// Clean normalizes text, drops isolated digit and danda artifacts, and collapses
// all whitespace to single spaces.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = Normalize(text)
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	text = dropIsolated(text)
	return strings.Join(strings.Fields(text), " ")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isBengaliDigit(r rune) bool {
	return r >= '০' && r <= '৯'
}

// dropIsolated removes a Bengali digit with no word character on either side, and a
// danda with word characters on both sides. Word edges are judged on the input.
func dropIsolated(text string) string {
	rs := []rune(text)
	var b strings.Builder
	b.Grow(len(text))
	for i, r := range rs {
		before := i > 0 && isWordRune(rs[i-1])
		after := i+1 < len(rs) && isWordRune(rs[i+1])
		switch {
		case isBengaliDigit(r) && !before && !after:
			continue
		case r == '।' && before && after:
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
