// Package fields turns raw OCR text from travel documents into normalized
// traveler fields.
//
// Extraction is heuristic: each field is an ordered list of independent
// strategies (label proximity, casing, document-wide patterns) and the first
// one to produce a value wins. Every function here is pure; a field that
// cannot be located is reported as nil and never as an error.
package fields

// RawText is the OCR engine output contract.
type RawText struct {
	Text string `json:"text"`
}

// PassportFields is the normalized passport mapping. Nil means not found.
type PassportFields struct {
	Surname        *string `json:"surname"`
	GivenNames     *string `json:"given_names"`
	Nationality    *string `json:"nationality"`
	DateOfBirth    *string `json:"date_of_birth"`
	Gender         *string `json:"gender"`
	PassportNumber *string `json:"passport_number"`
}

// BoardingPassFields is the normalized boarding-pass mapping. Nil means not found.
type BoardingPassFields struct {
	Airline       *string `json:"airline"`
	FlightNumber  *string `json:"flight_number"`
	PassengerName *string `json:"passenger_name"`
	FromOrigin    *string `json:"from_origin"`
	ToDestination *string `json:"to_destination"`
	DepartureDate *string `json:"departure_date"`
}

// Map returns the fields keyed by their JSON names; absent fields map to nil.
func (p PassportFields) Map() map[string]any {
	return map[string]any{
		"surname":         deref(p.Surname),
		"given_names":     deref(p.GivenNames),
		"nationality":     deref(p.Nationality),
		"date_of_birth":   deref(p.DateOfBirth),
		"gender":          deref(p.Gender),
		"passport_number": deref(p.PassportNumber),
	}
}

// Map returns the fields keyed by their JSON names; absent fields map to nil.
func (b BoardingPassFields) Map() map[string]any {
	return map[string]any{
		"airline":        deref(b.Airline),
		"flight_number":  deref(b.FlightNumber),
		"passenger_name": deref(b.PassengerName),
		"from_origin":    deref(b.FromOrigin),
		"to_destination": deref(b.ToDestination),
		"departure_date": deref(b.DepartureDate),
	}
}

// PassportKeys lists the passport mapping keys in output order.
var PassportKeys = []string{"surname", "given_names", "nationality", "date_of_birth", "gender", "passport_number"}

// BoardingPassKeys lists the boarding-pass mapping keys in output order.
var BoardingPassKeys = []string{"airline", "flight_number", "passenger_name", "from_origin", "to_destination", "departure_date"}

func deref(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
