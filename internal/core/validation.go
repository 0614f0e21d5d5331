package core

// validation.go checks rows against the person schema.
//
// Validation is a pure function of one row: it never touches the store, so
// the import loop, the single-insert path and tests all share it.
//
//  1. Presence: every required field must be a key of the row. The first
//     missing field (in RequiredFields order) is reported.
//  2. Coercion: age must be an integer and status a boolean (see convert.go).
//  3. Everything else is copied verbatim.

import (
	"fmt"
	"sort"
	"strings"
)

// CoercionReason is the rejection reason when age or status cannot be typed.
const CoercionReason = "age/status must be numeric/boolean"

// ValidationResult is the outcome of validating one row: either a typed
// Record (Valid) or the Reason it was rejected.
type ValidationResult struct {
	Valid  bool
	Record Person
	Reason string
}

func invalid(reason string) ValidationResult {
	return ValidationResult{Reason: reason}
}

// ValidateRow validates a single row and returns the typed person or the
// first problem found.
func ValidateRow(values map[string]any) ValidationResult {
	for _, field := range RequiredFields {
		if _, ok := values[field]; !ok {
			return invalid("missing required field: " + field)
		}
	}

	age, ok := ToInt(values[FieldAge])
	if !ok {
		return invalid(CoercionReason)
	}
	status, ok := ToBool(values[FieldStatus])
	if !ok {
		return invalid(CoercionReason)
	}

	return ValidationResult{
		Valid: true,
		Record: Person{
			Name:       ToText(values[FieldName]),
			LastName:   ToText(values[FieldLastName]),
			Email:      ToText(values[FieldEmail]),
			Age:        age,
			Sex:        ToText(values[FieldSex]),
			Address:    ToText(values[FieldAddress]),
			Country:    ToText(values[FieldCountry]),
			Degree:     ToText(values[FieldDegree]),
			University: ToText(values[FieldUniversity]),
			Status:     status,
		},
	}
}

// ValidateUpdate checks a partial update and returns the fields with age and
// status coerced to their stored types. Unknown fields are rejected so stored
// documents keep exactly the person schema.
func ValidateUpdate(fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyUpdate
	}

	known := make(map[string]bool, len(RequiredFields))
	for _, f := range RequiredFields {
		known[f] = true
	}

	var unknown []string
	out := make(map[string]any, len(fields))
	for name, raw := range fields {
		if !known[name] {
			unknown = append(unknown, name)
			continue
		}
		switch name {
		case FieldAge:
			age, ok := ToInt(raw)
			if !ok {
				return nil, &ValidationError{Reason: CoercionReason}
			}
			out[name] = age
		case FieldStatus:
			status, ok := ToBool(raw)
			if !ok {
				return nil, &ValidationError{Reason: CoercionReason}
			}
			out[name] = status
		default:
			s, ok := raw.(string)
			if !ok {
				return nil, &ValidationError{Reason: fmt.Sprintf("field %s must be text", name)}
			}
			out[name] = s
		}
	}

	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Reason: "unknown fields: " + strings.Join(unknown, ", ")}
	}

	return out, nil
}
