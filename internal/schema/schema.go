// Package schema holds the JSON output contracts for extracted fields.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/traveler-intake/constants"
	"github.com/joseph-ayodele/traveler-intake/internal/common"
	"github.com/joseph-ayodele/traveler-intake/internal/fields"
)

// PassportSchema describes fields.PassportFields. Every key is required and
// nullable. date_of_birth is free text because unparseable dates are kept
// verbatim.
func PassportSchema() map[string]any {
	return objectSchema(map[string]any{
		"surname":         nullableText(),
		"given_names":     nullableText(),
		"nationality":     nullableText(),
		"date_of_birth":   nullableText(),
		"gender":          map[string]any{"enum": []any{"Male", "Female", nil}},
		"passport_number": nullablePattern(`^[A-Z]\d{7,10}$`),
	}, fields.PassportKeys)
}

// BoardingPassSchema describes fields.BoardingPassFields.
func BoardingPassSchema() map[string]any {
	return objectSchema(map[string]any{
		"airline":        nullableText(),
		"flight_number":  nullablePattern(`^[A-Z]{2,3}\d{2,5}$`),
		"passenger_name": nullableText(),
		"from_origin":    nullablePattern(`^[A-Z]{3}$`),
		"to_destination": nullablePattern(`^[A-Z]{3}$`),
		"departure_date": nullableText(),
	}, fields.BoardingPassKeys)
}

func objectSchema(props map[string]any, required []string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func nullableText() map[string]any {
	return map[string]any{"type": []string{"string", "null"}, "minLength": 1}
}

func nullablePattern(pattern string) map[string]any {
	return map[string]any{"type": []string{"string", "null"}, "pattern": pattern}
}

// Compile turns a schema map into a reusable validator.
func Compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks raw JSON data against schemaMap.
func Validate(schemaMap map[string]any, data []byte) error {
	schema, err := Compile(schemaMap)
	if err != nil {
		return err
	}
	return validateWith(schema, data)
}

func validateWith(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: json does not match schema: %v", common.ErrValidation, err)
	}
	return nil
}

// Registry holds compiled schemas per document type.
type Registry struct {
	schemas map[constants.DocumentType]*jsonschema.Schema
}

func NewRegistry() (*Registry, error) {
	r := &Registry{schemas: make(map[constants.DocumentType]*jsonschema.Schema, 2)}
	for dt, build := range map[constants.DocumentType]func() map[string]any{
		constants.Passport:     PassportSchema,
		constants.BoardingPass: BoardingPassSchema,
	} {
		s, err := Compile(build())
		if err != nil {
			return nil, fmt.Errorf("%s schema: %w", dt, err)
		}
		r.schemas[dt] = s
	}
	return r, nil
}

// ValidateFields marshals v and checks it against the schema for docType.
func (r *Registry) ValidateFields(docType constants.DocumentType, v any) error {
	s, ok := r.schemas[docType]
	if !ok {
		return fmt.Errorf("document type %q: %w", docType, common.ErrUnsupported)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}
	return validateWith(s, b)
}
