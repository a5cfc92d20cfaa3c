// Package prefill merges the fields of a traveler's documents into one
// mapping and turns it into a submitted customs declaration.
package prefill

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joseph-ayodele/traveler-intake/constants"
)

// Merge combines mappings left to right. A later non-nil value replaces an
// earlier one; nil never clears a value already found.
func Merge(maps ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			if v == nil {
				if _, seen := out[k]; !seen {
					out[k] = nil
				}
				continue
			}
			out[k] = v
		}
	}
	return out
}

// LoadJSON reads a field mapping. A missing file (or empty path) is an empty
// mapping, since a traveler may skip a document.
func LoadJSON(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

// Session collects one traveler's document results in capture order:
// passport, arrival pass, then departure pass.
type Session struct {
	Passport  map[string]any
	Arrival   map[string]any
	Departure map[string]any
}

// Add records the fields of one processed document.
func (s *Session) Add(docType constants.DocumentType, subtype constants.Subtype, values map[string]any) error {
	switch {
	case docType == constants.Passport:
		s.Passport = values
	case docType == constants.BoardingPass && subtype == constants.SubtypeArrival:
		s.Arrival = values
	case docType == constants.BoardingPass && subtype == constants.SubtypeDeparture:
		s.Departure = values
	default:
		return fmt.Errorf("no session slot for %s/%s", docType, subtype)
	}
	return nil
}

// LoadSession reads the passenger JSON written for each document. Any path
// may be empty.
func LoadSession(passport, arrival, departure string) (*Session, error) {
	var s Session
	var err error
	if s.Passport, err = LoadJSON(passport); err != nil {
		return nil, err
	}
	if s.Arrival, err = LoadJSON(arrival); err != nil {
		return nil, err
	}
	if s.Departure, err = LoadJSON(departure); err != nil {
		return nil, err
	}
	return &s, nil
}

// Prefill is the merged mapping used to pre-populate the declaration.
func (s *Session) Prefill() map[string]any {
	return Merge(s.Passport, s.Arrival, s.Departure)
}

// Declaration starts a customs declaration from the merged fields.
func (s *Session) Declaration() Declaration {
	return FromPrefill(s.Prefill())
}
