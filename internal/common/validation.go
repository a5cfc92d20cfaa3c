package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/traveler-intake/internal/fields"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator collects rule failures across fields
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors. Rules after the first failure
// for a field are skipped.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
			break
		}
	}
	return v
}

// Add records a failure found outside the rule chain.
func (v *Validator) Add(err ValidationError) *Validator {
	v.errors = append(v.errors, err)
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns a combined error wrapping ErrValidation
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	messages := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

// Required fails on nil, empty and whitespace-only values.
func Required(fieldName string, value any) *ValidationError {
	if _, ok := stringValue(value); !ok {
		return &ValidationError{Field: fieldName, Message: "is required"}
	}
	return nil
}

// Optional stops the rule chain when the value is absent.
func Optional(rules ...ValidationRule) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		if _, ok := stringValue(value); !ok {
			return nil
		}
		for _, rule := range rules {
			if err := rule(fieldName, value); err != nil {
				return err
			}
		}
		return nil
	}
}

func MinLength(min int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := stringValue(value)
		if ok && utf8.RuneCountInString(str) < min {
			return &ValidationError{
				Field:   fieldName,
				Value:   str,
				Message: fmt.Sprintf("must be at least %d characters", min),
			}
		}
		return nil
	}
}

func MatchPattern(re *regexp.Regexp, message string) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := stringValue(value)
		if ok && !re.MatchString(str) {
			return &ValidationError{Field: fieldName, Value: str, Message: message}
		}
		return nil
	}
}

func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := stringValue(value)
		if !ok {
			return nil
		}
		for _, a := range allowed {
			if str == a {
				return nil
			}
		}
		return &ValidationError{
			Field:   fieldName,
			Value:   str,
			Message: "must be one of " + strings.Join(allowed, ", "),
		}
	}
}

// ISODate requires a real calendar date in YYYY-MM-DD form.
func ISODate(fieldName string, value any) *ValidationError {
	str, ok := stringValue(value)
	if !ok {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, str); err != nil {
		return &ValidationError{Field: fieldName, Value: str, Message: "is not a YYYY-MM-DD date"}
	}
	return nil
}

func UUID(fieldName string, value any) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}

	if _, err := uuid.Parse(str); err != nil {
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be a valid UUID",
		}
	}
	return nil
}

var (
	reIATACode       = regexp.MustCompile(`^[A-Z]{3}$`)
	reFlightNumber   = regexp.MustCompile(`^[A-Z]{2,3}\d{2,5}$`)
	rePassportNumber = regexp.MustCompile(`^[A-Z]\d{7,10}$`)
)

// IATACode requires a three-letter airport code.
var IATACode = MatchPattern(reIATACode, "must be a 3-letter airport code")

// ReviewPassport lists passport fields a traveler must confirm or supply
// before the declaration form can be submitted.
func ReviewPassport(p fields.PassportFields) []ValidationError {
	return NewValidator().
		Field("surname", p.Surname, Required, MinLength(2)).
		Field("given_names", p.GivenNames, Required).
		Field("nationality", p.Nationality, Required).
		Field("date_of_birth", p.DateOfBirth, Required, ISODate).
		Field("gender", p.Gender, Optional(OneOf("Male", "Female"))).
		Field("passport_number", p.PassportNumber, Required,
			MatchPattern(rePassportNumber, "must be a letter followed by 7-10 digits")).
		Errors()
}

// ReviewBoardingPass lists boarding-pass fields a traveler must confirm or
// supply. Only airline and flight number are required on the form.
func ReviewBoardingPass(b fields.BoardingPassFields) []ValidationError {
	return NewValidator().
		Field("airline", b.Airline, Required).
		Field("flight_number", b.FlightNumber, Required,
			MatchPattern(reFlightNumber, "must be a carrier code followed by digits")).
		Field("from_origin", b.FromOrigin, Optional(IATACode)).
		Field("to_destination", b.ToDestination, Optional(IATACode)).
		Errors()
}

// NeedsReview reports whether any flag was raised.
func NeedsReview(flags []ValidationError) bool {
	return len(flags) > 0
}

// ValidateAndReturnError validates and returns InvalidArgumentError if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}

func stringValue(value any) (string, bool) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return "", false
		}
		s = *v
	default:
		return "", false
	}
	if strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
