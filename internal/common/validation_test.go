package common

import (
	"errors"
	"testing"

	"github.com/joseph-ayodele/traveler-intake/internal/fields"
)

func ptr(s string) *string { return &s }

func flaggedFields(flags []ValidationError) []string {
	out := make([]string, 0, len(flags))
	for _, f := range flags {
		out = append(out, f.Field)
	}
	return out
}

func TestReviewPassportCompleteRecord(t *testing.T) {
	p := fields.PassportFields{
		Surname:        ptr("DOE"),
		GivenNames:     ptr("JOHN"),
		Nationality:    ptr("UNITED STATES"),
		DateOfBirth:    ptr("1990-07-15"),
		Gender:         nil,
		PassportNumber: ptr("A1234567"),
	}
	flags := ReviewPassport(p)
	if NeedsReview(flags) {
		t.Fatalf("expected no flags, got %v", flaggedFields(flags))
	}
}

func TestReviewPassportFlagsMissingAndSuspicious(t *testing.T) {
	p := fields.PassportFields{
		Surname:        ptr("DOE"),
		DateOfBirth:    ptr("31 FEB 1990"),
		Gender:         ptr("Male"),
		PassportNumber: ptr("12345"),
	}
	got := flaggedFields(ReviewPassport(p))
	want := []string{"given_names", "nationality", "date_of_birth", "passport_number"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestReviewBoardingPass(t *testing.T) {
	b := fields.BoardingPassFields{
		Airline:       ptr("Delta Air Lines"),
		FlightNumber:  ptr("DL1234"),
		FromOrigin:    ptr("LAX"),
		ToDestination: ptr("jfk"),
	}
	got := flaggedFields(ReviewBoardingPass(b))
	if len(got) != 1 || got[0] != "to_destination" {
		t.Fatalf("expected only to_destination flagged, got %v", got)
	}
}

func TestValidatorErrorWrapsSentinel(t *testing.T) {
	v := NewValidator().Field("surname", "", Required)
	if !errors.Is(v.Error(), ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", v.Error())
	}
	if NewValidator().Error() != nil {
		t.Fatal("expected nil error for empty validator")
	}
}
