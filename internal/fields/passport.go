package fields

import (
	"regexp"
	"strings"
	"time"
)

var (
	surnameLabels    = newLabelSet(`surn[a-z]*`, `family name`, `last name`)
	givenNameLabels  = newLabelSet(`given names?`, `prenome`, `nombres?`)
	reDayMonthYear   = regexp.MustCompile(`\d{1,2} [A-Z]{3,} \d{4}`)
	reDayMonthPrefix = regexp.MustCompile(`^\d{1,2} [A-Z]{3,} \d{4}`)
	reGender         = wordToken(`(M|F)`)
	reMRZNumber      = regexp.MustCompile(`([A-Z]\d{7,10})USA`)
	reDocNumber      = wordToken(`([A-Z]\d{7,10})`)
	reOfAmerica      = regexp.MustCompile(`OF AM(?:ERICA)?`)
)

const dayMonthYearLayout = "2 Jan 2006"

// ExtractPassport pulls passport fields out of raw OCR text.
func ExtractPassport(text string) PassportFields {
	doc := newDocument(text)
	return PassportFields{
		Surname:        present(firstOf(doc, surnameByLabel, surnameByCaps)),
		GivenNames:     present(firstOf(doc, givenNamesByLabel, givenNamesByNextLine)),
		Nationality:    present(normalizeNationality(firstOf(doc, nationalityByLabel, nationalityUnitedStates, nationalityFirstCaps))),
		DateOfBirth:    present(firstOf(doc, birthDateAnywhere, birthDateByLabel)),
		Gender:         present(gender(doc)),
		PassportNumber: present(firstOf(doc, passportNumberMRZ, passportNumberAnywhere)),
	}
}

func surnameByLabel(doc document) string {
	return findAfterLabel(surnameLabels, doc.lines)
}

func surnameByCaps(doc document) string {
	for i, line := range doc.lines {
		if !containsFold(line, "surn") {
			continue
		}
		next, ok := doc.lines.next(i)
		if ok && isUpper(next) && runeLen(next) > 2 {
			return strings.TrimSpace(reNotUpper.ReplaceAllString(upper(next), ""))
		}
	}
	return ""
}

func givenNamesByLabel(doc document) string {
	return findAfterLabel(givenNameLabels, doc.lines)
}

func givenNamesByNextLine(doc document) string {
	for i, line := range doc.lines {
		if !containsFold(line, "given names") {
			continue
		}
		next, ok := doc.lines.next(i)
		if !ok || runeLen(next) <= 2 {
			continue
		}
		words := make([]string, 0, 4)
		for _, w := range strings.Fields(next) {
			if isAlpha(w) {
				words = append(words, w)
			}
		}
		return strings.Join(words, " ")
	}
	return ""
}

func nationalityByLabel(doc document) string {
	return findAllCapsAfter("nationality", doc.lines)
}

func nationalityUnitedStates(doc document) string {
	for _, line := range doc.lines {
		if strings.Contains(line, "UNITED") && strings.Contains(line, "STATES") {
			return "UNITED STATES"
		}
	}
	return ""
}

func nationalityFirstCaps(doc document) string {
	return findFirstAllCaps(doc.lines)
}

// normalizeNationality expands the truncated "OF AM" and folds the long US
// form into "UNITED STATES".
func normalizeNationality(s string) string {
	if s == "" {
		return s
	}
	s = reOfAmerica.ReplaceAllString(s, "OF AMERICA")
	return strings.ReplaceAll(s, "UNITED STATES OF AMERICA", "UNITED STATES")
}

func birthDateAnywhere(doc document) string {
	if m := reDayMonthYear.FindString(doc.text); m != "" {
		return isoDate(m)
	}
	return ""
}

func birthDateByLabel(doc document) string {
	for i, line := range doc.lines {
		if !containsFold(line, "birth") {
			continue
		}
		next, ok := doc.lines.next(i)
		if !ok {
			continue
		}
		if m := reDayMonthPrefix.FindString(next); m != "" {
			return isoDate(m)
		}
	}
	return ""
}

// isoDate reformats "15 JUL 1990" as "1990-07-15". Text that has the right
// shape but is not a real date is returned unchanged.
func isoDate(s string) string {
	t, err := time.Parse(dayMonthYearLayout, s)
	if err != nil {
		return s
	}
	return t.Format(time.DateOnly)
}

func gender(doc document) string {
	m := reGender.FindStringSubmatch(doc.text)
	if m == nil {
		return ""
	}
	if m[1] == "M" {
		return "Male"
	}
	return "Female"
}

// passportNumberMRZ scans from the bottom up because the machine-readable
// zone is printed at the foot of the data page. That is a layout heuristic,
// not a guarantee about OCR output order.
func passportNumberMRZ(doc document) string {
	for i := len(doc.lines) - 1; i >= 0; i-- {
		line := doc.lines[i]
		if !strings.Contains(line, "USA") {
			continue
		}
		if m := reMRZNumber.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func passportNumberAnywhere(doc document) string {
	if m := reDocNumber.FindStringSubmatch(doc.text); m != nil {
		return m[1]
	}
	return ""
}
