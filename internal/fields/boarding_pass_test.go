package fields

import (
	"reflect"
	"testing"
)

const deltaPass = `DELTA AIR LINES (DL)
BOARDING PASS
Passenger: DOE/JOHN
Flight DL 1234
From: LAX
To: JFK
Date: 15 JUL 2025`

func TestExtractBoardingPassFullCard(t *testing.T) {
	got := ExtractBoardingPass(deltaPass)

	checks := []struct {
		field string
		got   *string
		want  string
	}{
		{"airline", got.Airline, "Delta Air Lines"},
		{"flight_number", got.FlightNumber, "DL1234"},
		{"passenger_name", got.PassengerName, "John Doe"},
		{"from_origin", got.FromOrigin, "LAX"},
		{"to_destination", got.ToDestination, "JFK"},
		{"departure_date", got.DepartureDate, "15 JUL 2025"},
	}
	for _, c := range checks {
		if strVal(c.got) != c.want {
			t.Fatalf("%s: expected %q, got %q", c.field, c.want, strVal(c.got))
		}
	}
}

func TestExtractBoardingPassEmptyInput(t *testing.T) {
	got := ExtractBoardingPass("")
	if !reflect.DeepEqual(got, BoardingPassFields{}) {
		t.Fatalf("expected all fields absent, got %+v", got)
	}
}

func TestExtractBoardingPassIsIdempotent(t *testing.T) {
	if a, b := ExtractBoardingPass(deltaPass), ExtractBoardingPass(deltaPass); !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical results, got %+v and %+v", a, b)
	}
}

func TestRouteFallsBackToCodePair(t *testing.T) {
	got := ExtractBoardingPass("DELTA AIR LINES\nDOE/JOHN\nLAX/JFK\nDL 1234")
	if strVal(got.FromOrigin) != "LAX" || strVal(got.ToDestination) != "JFK" {
		t.Fatalf("expected LAX -> JFK, got %q -> %q", strVal(got.FromOrigin), strVal(got.ToDestination))
	}
}

// Later "from"/"to" lines overwrite earlier ones. This pins down existing
// behavior; it is not a claim that last-match is the right policy.
func TestRouteLastMatchWins(t *testing.T) {
	got := ExtractBoardingPass("From LAX\nFrom SFO\nTo JFK\nTo BOS")
	if strVal(got.FromOrigin) != "SFO" {
		t.Fatalf("expected origin SFO, got %q", strVal(got.FromOrigin))
	}
	if strVal(got.ToDestination) != "BOS" {
		t.Fatalf("expected destination BOS, got %q", strVal(got.ToDestination))
	}
}

func TestRouteSkipsCodesInsideAccentedWords(t *testing.T) {
	got := ExtractBoardingPass("From ÉLAX OSL\nTo JFK")
	if strVal(got.FromOrigin) != "OSL" || strVal(got.ToDestination) != "JFK" {
		t.Fatalf("expected OSL -> JFK, got %q -> %q", strVal(got.FromOrigin), strVal(got.ToDestination))
	}
}

func TestRouteSingleLineTakesFirstCodeForBoth(t *testing.T) {
	got := ExtractBoardingPass("From: LAX To: JFK")
	if strVal(got.FromOrigin) != "LAX" || strVal(got.ToDestination) != "LAX" {
		t.Fatalf("expected LAX for both sides, got %q -> %q", strVal(got.FromOrigin), strVal(got.ToDestination))
	}
}

func TestAirline(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "header with carrier code", text: "BRITISH AIRWAYS (BA)\nBOARDING PASS", want: "British Airways"},
		{name: "below header", text: "BOARDING PASS\nGATE 12\nSEAT 14A\nUNITED AIRLINES", want: "United Airlines"},
		{name: "apostrophe", text: "O'HARE AIRLINES", want: "O'Hare Airlines"},
		{name: "none", text: "BOARDING PASS\nGATE 12", want: "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBoardingPass(tt.text)
			if strVal(got.Airline) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, strVal(got.Airline))
			}
		})
	}
}

func TestFlightNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "Flight: BA178", want: "BA178"},
		{text: "UA 415", want: "UA415"},
		{text: "ÖBA178\nUA 415", want: "UA415"},
		{text: "gate b\nseat 12a", want: "<nil>"},
	}
	for _, tt := range tests {
		got := ExtractBoardingPass(tt.text)
		if strVal(got.FlightNumber) != tt.want {
			t.Fatalf("%q: expected %q, got %q", tt.text, tt.want, strVal(got.FlightNumber))
		}
	}
}

func TestPassengerName(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "slash name reformatted", text: "Passenger: DOE/JOHN", want: "John Doe"},
		{name: "multi given names", text: "Name: SMITH/ROBERT MICHAEL", want: "Robert Michael Smith"},
		{name: "caption alone uses next line", text: "Passenger\nDoe/Jane 7", want: "Jane Doe"},
		{name: "caption as last line", text: "BOARDING\nName:", want: "<nil>"},
		{name: "bare caps line", text: "BOARDING\nDOE/JOHN\nDL 1234", want: "John Doe"},
		{name: "plain name kept", text: "Name: Jane Roe", want: "JANE ROE"},
		{name: "apostrophe surname", text: "Passenger: O'BRIEN/SEAN", want: "Sean O'Brien"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractBoardingPass(tt.text)
			if strVal(got.PassengerName) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, strVal(got.PassengerName))
			}
		})
	}
}

func TestDepartureDate(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "Departs July 15, 2025", want: "July 15, 2025"},
		{text: "15 July 2025", want: "15 July 2025"},
		{text: "DATE 2025-07-03", want: "2025-07-03"},
		{text: "07/03/2025", want: "07/03/2025"},
		{text: "03.07.2025", want: "03.07.2025"},
		{text: "2025/07/03", want: "2025/07/03"},
		{text: "15-JUL-2025", want: "15-JUL-2025"},
		{text: "JUL 15 2025", want: "JUL 15 2025"},
		{text: "no date here", want: "<nil>"},
	}
	for _, tt := range tests {
		got := ExtractBoardingPass(tt.text)
		if strVal(got.DepartureDate) != tt.want {
			t.Fatalf("%q: expected %q, got %q", tt.text, tt.want, strVal(got.DepartureDate))
		}
	}
}
