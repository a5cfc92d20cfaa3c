package constants

import (
	"strings"
)

// DocumentType is the kind of travel document on a capture.
type DocumentType string

const (
	Passport     DocumentType = "passport"
	BoardingPass DocumentType = "boarding_pass"
)

// Subtype distinguishes captures of the same document type.
type Subtype string

const (
	SubtypeMain      Subtype = "main"
	SubtypeArrival   Subtype = "arrival"
	SubtypeDeparture Subtype = "departure"
)

var allDocumentTypes = []DocumentType{Passport, BoardingPass}

func DocumentTypes() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// CanonicalizeDocumentType maps user and path spellings onto a DocumentType.
func CanonicalizeDocumentType(input string) (DocumentType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]DocumentType{
		"passport":      Passport,
		"passports":     Passport,
		"pp":            Passport,
		"boarding_pass": BoardingPass,
		"boarding-pass": BoardingPass,
		"boarding pass": BoardingPass,
		"boardingpass":  BoardingPass,
		"bp":            BoardingPass,
	}
	dt, ok := synonyms[normalized]
	return dt, ok
}

// CanonicalizeSubtype maps a subtype spelling; empty input means main.
func CanonicalizeSubtype(input string) (Subtype, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "main":
		return SubtypeMain, true
	case "arrival", "arr", "inbound":
		return SubtypeArrival, true
	case "departure", "dep", "outbound":
		return SubtypeDeparture, true
	}
	return "", false
}

// ValidSubtype reports whether subtype is allowed for dt. Passports only have
// a main capture; boarding passes are arrival or departure legs.
func ValidSubtype(dt DocumentType, subtype Subtype) bool {
	switch dt {
	case Passport:
		return subtype == SubtypeMain
	case BoardingPass:
		return subtype == SubtypeArrival || subtype == SubtypeDeparture
	}
	return false
}
