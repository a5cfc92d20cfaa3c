package fields

import (
	"reflect"
	"testing"
)

const usPassport = `PASSPORT
UNITED STATES OF AMERICA
Surname
DOE
Given Names
JOHN MICHAEL
Nationality
UNITED STATES OF AM
Date of birth
15 JUL 1990
Sex
M
P<USADOE<<JOHN<MICHAEL<<<<<<<<<<<<<<<<<<<<<<
A1234567USA9007151M3001012`

func strVal(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestExtractPassportFullPage(t *testing.T) {
	got := ExtractPassport(usPassport)

	checks := []struct {
		field string
		got   *string
		want  string
	}{
		{"surname", got.Surname, "DOE"},
		{"given_names", got.GivenNames, "JOHN MICHAEL"},
		{"nationality", got.Nationality, "UNITED STATES"},
		{"date_of_birth", got.DateOfBirth, "1990-07-15"},
		{"gender", got.Gender, "Male"},
		{"passport_number", got.PassportNumber, "A1234567"},
	}
	for _, c := range checks {
		if strVal(c.got) != c.want {
			t.Fatalf("%s: expected %q, got %q", c.field, c.want, strVal(c.got))
		}
	}
}

func TestExtractPassportEmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		got := ExtractPassport(text)
		if !reflect.DeepEqual(got, PassportFields{}) {
			t.Fatalf("expected all fields absent for %q, got %+v", text, got)
		}
	}
}

func TestExtractPassportIsIdempotent(t *testing.T) {
	first := ExtractPassport(usPassport)
	second := ExtractPassport(usPassport)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestPassportNumberPrefersMachineReadableZone(t *testing.T) {
	text := "Passport No. B7654321\nSurname\nDOE\nP<USADOE<<JOHN<<<<<<<<\nA1234567USA9007151M3001012"
	got := ExtractPassport(text)
	if strVal(got.PassportNumber) != "A1234567" {
		t.Fatalf("expected MRZ number A1234567, got %q", strVal(got.PassportNumber))
	}
}

func TestPassportNumberFallsBackToBareToken(t *testing.T) {
	got := ExtractPassport("Passport No\nC03005988\nIssued 2019")
	if strVal(got.PassportNumber) != "C03005988" {
		t.Fatalf("expected C03005988, got %q", strVal(got.PassportNumber))
	}
}

func TestPassportNumberNeedsWholeToken(t *testing.T) {
	if got := ExtractPassport("Document\nÑC03005988"); got.PassportNumber != nil {
		t.Fatalf("expected no number inside an accented token, got %q", *got.PassportNumber)
	}
	if got := ExtractPassport("Nº C03005988"); strVal(got.PassportNumber) != "C03005988" {
		t.Fatalf("expected C03005988, got %q", strVal(got.PassportNumber))
	}
}

func TestDateOfBirth(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "abbreviated month", text: "Date of birth\n15 JUL 1990", want: "1990-07-15"},
		{name: "single digit day", text: "DOB 5 MAR 1984", want: "1984-03-05"},
		{name: "impossible day kept raw", text: "Date of birth\n31 FEB 1990", want: "31 FEB 1990"},
		{name: "full month name kept raw", text: "Date of birth\n15 JULY 1990", want: "15 JULY 1990"},
		{name: "no date", text: "Date of birth\nunknown", want: "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPassport(tt.text)
			if strVal(got.DateOfBirth) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, strVal(got.DateOfBirth))
			}
		})
	}
}

func TestNationality(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "truncated america", text: "Nationality\nUNITED STATES OF AM", want: "UNITED STATES"},
		{name: "complete america", text: "Nationality\nUNITED STATES OF AMERICA", want: "UNITED STATES"},
		{name: "united states anywhere", text: "passport\nIssued by UNITED STATES Dept of State", want: "UNITED STATES"},
		{name: "first all caps line", text: "Passeport\nREPUBLIQUE FRANCAISE", want: "REPUBLIQUE FRANCAISE"},
		{name: "short caps ignored", text: "Nationality\nUSA", want: "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPassport(tt.text)
			if strVal(got.Nationality) != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, strVal(got.Nationality))
			}
		})
	}
}

func TestGender(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "Sex\nF", want: "Female"},
		{text: "Sex / Sexe\nM", want: "Male"},
		{text: "NO GENDER HERE", want: "<nil>"},
		{text: "Surname\nMÜLLER\nSex\nF", want: "Female"},
		{text: "Given names\nFÉLIX\nSex\nM", want: "Male"},
		{text: "Place of birth\nMÁLAGA\nNO SEX FIELD", want: "<nil>"},
		{text: "Sexo/Sex:M", want: "Male"},
	}
	for _, tt := range tests {
		got := ExtractPassport(tt.text)
		if strVal(got.Gender) != tt.want {
			t.Fatalf("%q: expected %q, got %q", tt.text, tt.want, strVal(got.Gender))
		}
	}
}

func TestSurnameStrategies(t *testing.T) {
	if got := surnameByLabel(newDocument("Last name\n123\nO'BRIEN")); got != "" {
		t.Fatalf("expected first accepted candidate to win even when it normalizes empty, got %q", got)
	}
	if got := surnameByLabel(newDocument("Apellidos / Surname\nGARCÍA-LOPEZ")); got != "GARCA-LOPEZ" {
		t.Fatalf("expected GARCA-LOPEZ, got %q", got)
	}
	if got := surnameByCaps(newDocument("Surn\nO'NEIL")); got != "ONEIL" {
		t.Fatalf("expected ONEIL, got %q", got)
	}
	if got := surnameByCaps(newDocument("Surname\nDoe")); got != "" {
		t.Fatalf("expected mixed-case line to be rejected, got %q", got)
	}
}

func TestSurnameFallsBackWhenLabelWindowHoldsOnlyLabels(t *testing.T) {
	got := ExtractPassport("Surname\nFAMILY NAME DOE")
	if strVal(got.Surname) != "FAMILYNAMEDOE" {
		t.Fatalf("expected caps fallback FAMILYNAMEDOE, got %q", strVal(got.Surname))
	}
}

func TestGivenNamesStrategies(t *testing.T) {
	if got := givenNamesByLabel(newDocument("Prenome / Given names\nMaria José")); got != "MARIA JOS" {
		t.Fatalf("expected MARIA JOS, got %q", got)
	}
	if got := givenNamesByNextLine(newDocument("Given names\nJOHN 2ND MICHAEL")); got != "JOHN MICHAEL" {
		t.Fatalf("expected JOHN MICHAEL, got %q", got)
	}
	if got := givenNamesByNextLine(newDocument("Given names\nJO")); got != "" {
		t.Fatalf("expected short line to be skipped, got %q", got)
	}
}
