package fields

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lines is OCR text split into trimmed, non-empty lines in reading order.
type Lines []string

// SplitLines breaks raw OCR text into Lines.
func SplitLines(text string) Lines {
	raw := strings.Split(text, "\n")
	out := make(Lines, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// window returns up to n lines following index i.
func (ls Lines) window(i, n int) Lines {
	start := i + 1
	if start >= len(ls) {
		return nil
	}
	end := start + n
	if end > len(ls) {
		end = len(ls)
	}
	return ls[start:end]
}

// next returns the line after i, if any.
func (ls Lines) next(i int) (string, bool) {
	if i+1 < len(ls) {
		return ls[i+1], true
	}
	return "", false
}

// document bundles the two views every strategy scans.
type document struct {
	text  string
	lines Lines
}

func newDocument(text string) document {
	return document{text: text, lines: SplitLines(text)}
}

// strategy is one extraction rule for a single field; "" means no match.
type strategy func(document) string

// firstOf runs strategies in order and returns the first non-empty value.
func firstOf(doc document, rules ...strategy) string {
	for _, rule := range rules {
		if v := rule(doc); v != "" {
			return v
		}
	}
	return ""
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// isUpper reports whether s has at least one cased letter and no lowercase ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			cased = true
		}
	}
	return cased
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// present turns an empty value into an absent one.
func present(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
