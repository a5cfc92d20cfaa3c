package fields

import (
	"regexp"
	"strings"
)

const airlineHeaderLines = 3

var (
	reAirline       = regexp.MustCompile(`(?i)(AIRWAYS?|LINES?)`)
	reParenthetical = regexp.MustCompile(`\([^)]*\)`)

	// flight numbers: BA178, UA 415, Flight: BA178
	flightPatterns = []*regexp.Regexp{
		wordToken(`([A-Z]{2,3}\s?\d{2,5})`),
		regexp.MustCompile(`Flight[:\s]+([A-Z]{2,3}\s?\d{2,5})`),
	}

	rePassengerLabel  = regexp.MustCompile(`(?i)^(Passenger|Name)[:\s]*`)
	reBareName        = regexp.MustCompile(`^[A-Z\s\-,/]{5,}$`)
	reNotPassengerChr = regexp.MustCompile(`[^A-Z \-/]`)

	reIATA      = wordToken(`([A-Z]{3})`)
	reRoutePair = wordToken(`([A-Z]{3})[/-]([A-Z]{3})`)

	// Tried in order against each line; the value is kept as printed.
	departureDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[A-Z][a-z]+ \d{1,2}, \d{4}`), // July 15, 2025
		regexp.MustCompile(`\d{1,2} [A-Z][a-z]+ \d{4}`),  // 15 July 2025
		regexp.MustCompile(`[A-Z]{3} \d{1,2}, \d{4}`),    // JUL 15, 2025
		regexp.MustCompile(`\d{1,2} [A-Z]{3,} \d{4}`),    // 15 JUL 2025
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),          // 2025-07-03
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),          // 07/03/2025
		regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`),        // 03.07.2025
		regexp.MustCompile(`\d{4}/\d{2}/\d{2}`),          // 2025/07/03
		regexp.MustCompile(`\d{1,2}-[A-Z]{3}-\d{4}`),     // 15-JUL-2025
		regexp.MustCompile(`[A-Z]{3,} \d{1,2} \d{4}`),    // JUL 15 2025
	}
)

// ExtractBoardingPass pulls boarding-pass fields out of raw OCR text.
func ExtractBoardingPass(text string) BoardingPassFields {
	doc := newDocument(text)
	origin, destination := route(doc)
	return BoardingPassFields{
		Airline:       present(firstOf(doc, airlineInHeader, airlineAnywhere)),
		FlightNumber:  present(flightNumber(doc)),
		PassengerName: present(passengerName(doc)),
		FromOrigin:    present(origin),
		ToDestination: present(destination),
		DepartureDate: present(departureDate(doc)),
	}
}

func airlineInHeader(doc document) string {
	n := airlineHeaderLines
	if n > len(doc.lines) {
		n = len(doc.lines)
	}
	return airlineIn(doc.lines[:n])
}

func airlineAnywhere(doc document) string {
	return airlineIn(doc.lines)
}

// airlineIn title-cases the first carrier-looking line and drops any
// parenthesised carrier code.
func airlineIn(lines Lines) string {
	for _, line := range lines {
		if reAirline.MatchString(line) {
			return strings.TrimSpace(reParenthetical.ReplaceAllString(title(line), ""))
		}
	}
	return ""
}

func flightNumber(doc document) string {
	for _, line := range doc.lines {
		for _, re := range flightPatterns {
			if m := re.FindStringSubmatch(line); m != nil {
				return strings.NewReplacer(" ", "", "-", "").Replace(m[1])
			}
		}
	}
	return ""
}

// passengerName prefers the first "Passenger"/"Name" captioned line. Bare
// all-caps lines are only considered when no caption exists at all.
func passengerName(doc document) string {
	name, labeled := labeledPassenger(doc)
	if !labeled {
		name = barePassenger(doc)
	}
	return surnameFirstToGiven(name)
}

func labeledPassenger(doc document) (string, bool) {
	for i, line := range doc.lines {
		if !containsFold(line, "passenger") && !containsFold(line, "name") {
			continue
		}
		if after := rePassengerLabel.ReplaceAllString(line, ""); runeLen(after) > 2 {
			return upper(after), true
		}
		if next, ok := doc.lines.next(i); ok {
			return cleanPassenger(next), true
		}
		return "", true
	}
	return "", false
}

func barePassenger(doc document) string {
	for _, line := range doc.lines {
		if reBareName.MatchString(line) && strings.ContainsAny(line, "/ ") {
			return cleanPassenger(line)
		}
	}
	return ""
}

func cleanPassenger(s string) string {
	return strings.TrimSpace(reNotPassengerChr.ReplaceAllString(upper(s), ""))
}

// surnameFirstToGiven rewrites "DOE/JOHN" as "John Doe".
func surnameFirstToGiven(name string) string {
	parts := strings.Split(name, "/")
	if len(parts) != 2 {
		return name
	}
	surname, given := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	return strings.TrimSpace(title(given) + " " + title(surname))
}

// route reads origin and destination from "from"/"to" lines. Each later
// matching line overwrites the earlier value. When either side is still
// missing, the first XXX/YYY or XXX-YYY pair sets both.
func route(doc document) (origin, destination string) {
	for _, line := range doc.lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "from") {
			if m := reIATA.FindStringSubmatch(line); m != nil {
				origin = m[1]
			}
		}
		if strings.Contains(lower, "to") {
			if m := reIATA.FindStringSubmatch(line); m != nil {
				destination = m[1]
			}
		}
	}
	if origin != "" && destination != "" {
		return origin, destination
	}
	for _, line := range doc.lines {
		if m := reRoutePair.FindStringSubmatch(line); m != nil {
			return m[1], m[2]
		}
	}
	return origin, destination
}

func departureDate(doc document) string {
	for _, line := range doc.lines {
		for _, re := range departureDatePatterns {
			if m := re.FindString(line); m != "" {
				return strings.TrimSpace(m)
			}
		}
	}
	return ""
}
