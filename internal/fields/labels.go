package fields

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const labelWindow = 3

var (
	reAllCaps     = regexp.MustCompile(`^[A-Z ]+$`)
	reNotNameChar = regexp.MustCompile(`[^A-Z \-]`)
	reNotUpper    = regexp.MustCompile(`[^A-Z]`)
)

// wordToken compiles pattern so it only matches as a whole word. RE2's \b
// treats every non-ASCII letter as a boundary, so "MÜLLER" would yield a
// bare "M". The boundary runes are consumed; callers read group 1 onwards.
func wordToken(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])` + pattern + `(?:[^\p{L}\p{N}_]|$)`)
}

// labelSet is a group of case-insensitive caption patterns for one field.
type labelSet []*regexp.Regexp

func newLabelSet(patterns ...string) labelSet {
	set := make(labelSet, 0, len(patterns))
	for _, p := range patterns {
		set = append(set, regexp.MustCompile(`(?i)`+p))
	}
	return set
}

func (ls labelSet) matches(s string) bool {
	for _, re := range ls {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// findAfterLabel returns the first value found within labelWindow lines of a
// line matching labels. A candidate must not itself look like a label and must
// be longer than 2 characters; it is uppercased and reduced to letters, spaces
// and hyphens.
func findAfterLabel(labels labelSet, lines Lines) string {
	for i, line := range lines {
		if !labels.matches(line) {
			continue
		}
		for _, cand := range lines.window(i, labelWindow) {
			cand = strings.TrimSpace(cand)
			if labels.matches(cand) || runeLen(cand) <= 2 {
				continue
			}
			return strings.TrimSpace(reNotNameChar.ReplaceAllString(upper(cand), ""))
		}
	}
	return ""
}

// findAllCapsAfter returns the first all-caps line (longer than 5) within
// labelWindow lines of a line containing label.
func findAllCapsAfter(label string, lines Lines) string {
	for i, line := range lines {
		if !containsFold(line, label) {
			continue
		}
		for _, cand := range lines.window(i, labelWindow) {
			if isAllCapsLine(cand) {
				return strings.TrimSpace(cand)
			}
		}
	}
	return ""
}

// findFirstAllCaps is the last-resort scan for any printed all-caps line.
func findFirstAllCaps(lines Lines) string {
	for _, line := range lines {
		if isAllCapsLine(line) {
			return strings.TrimSpace(line)
		}
	}
	return ""
}

func isAllCapsLine(s string) bool {
	return reAllCaps.MatchString(s) && runeLen(s) > 5
}

// Casers carry state, so each call gets its own.
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// title capitalises after an apostrophe as well, so O'BRIEN reads O'Brien.
func title(s string) string {
	caser := cases.Title(language.Und)
	parts := strings.Split(s, "'")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, "'")
}
