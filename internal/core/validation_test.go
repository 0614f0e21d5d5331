package core

import (
	"errors"
	"testing"
)

func validRow() map[string]any {
	return map[string]any{
		"name":       "Ana",
		"last_name":  "Diaz",
		"email":      "ana@example.com",
		"age":        "30",
		"sex":        "F",
		"address":    "Calle 1",
		"country":    "CO",
		"degree":     "BSc",
		"university": "UNAL",
		"status":     "true",
	}
}

func without(row map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func with(row map[string]any, key string, v any) map[string]any {
	out := without(row)
	out[key] = v
	return out
}

func TestValidateRow(t *testing.T) {
	tests := []struct {
		name       string
		row        map[string]any
		wantValid  bool
		wantReason string
		wantAge    int
		wantStatus bool
	}{
		{name: "all fields", row: validRow(), wantValid: true, wantAge: 30, wantStatus: true},
		{name: "status false token", row: with(validRow(), "status", "FALSE"), wantValid: true, wantAge: 30, wantStatus: false},
		{name: "status empty", row: with(validRow(), "status", ""), wantValid: true, wantAge: 30, wantStatus: false},
		{name: "status no is true", row: with(validRow(), "status", "no"), wantValid: true, wantAge: 30, wantStatus: true},
		{name: "age with spaces", row: with(validRow(), "age", " 7 "), wantValid: true, wantAge: 7, wantStatus: true},
		{name: "extra columns ignored", row: with(validRow(), "nickname", "A"), wantValid: true, wantAge: 30, wantStatus: true},

		{name: "missing email", row: without(validRow(), "email"), wantReason: "missing required field: email"},
		{name: "first missing in order", row: without(validRow(), "status", "name"), wantReason: "missing required field: name"},
		{name: "age not numeric", row: with(validRow(), "age", "abc"), wantReason: CoercionReason},
		{name: "age empty", row: with(validRow(), "age", ""), wantReason: CoercionReason},
		{name: "age decimal", row: with(validRow(), "age", "3.5"), wantReason: CoercionReason},
		{name: "status wrong type", row: with(validRow(), "status", []int{1}), wantReason: CoercionReason},
		{name: "presence checked before coercion", row: with(without(validRow(), "university"), "age", "x"), wantReason: "missing required field: university"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ValidateRow(tt.row)
			if res.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v (reason %q)", res.Valid, tt.wantValid, res.Reason)
			}
			if !tt.wantValid {
				if res.Reason != tt.wantReason {
					t.Errorf("Reason = %q, want %q", res.Reason, tt.wantReason)
				}
				return
			}
			if res.Record.Age != tt.wantAge {
				t.Errorf("Age = %d, want %d", res.Record.Age, tt.wantAge)
			}
			if res.Record.Status != tt.wantStatus {
				t.Errorf("Status = %v, want %v", res.Record.Status, tt.wantStatus)
			}
		})
	}
}

func TestValidateRow_CopiesTextVerbatim(t *testing.T) {
	row := with(validRow(), "address", "  Apt 4, Floor 2  ")
	res := ValidateRow(row)
	if !res.Valid {
		t.Fatalf("unexpected rejection: %s", res.Reason)
	}
	want := Person{
		Name:       "Ana",
		LastName:   "Diaz",
		Email:      "ana@example.com",
		Age:        30,
		Sex:        "F",
		Address:    "  Apt 4, Floor 2  ",
		Country:    "CO",
		Degree:     "BSc",
		University: "UNAL",
		Status:     true,
	}
	if res.Record != want {
		t.Errorf("Record = %+v, want %+v", res.Record, want)
	}
}

func TestValidateRow_Deterministic(t *testing.T) {
	row := without(validRow(), "sex")
	first := ValidateRow(row)
	for i := 0; i < 10; i++ {
		if got := ValidateRow(row); got != first {
			t.Fatalf("run %d = %+v, want %+v", i, got, first)
		}
	}
}

func TestValidateUpdate(t *testing.T) {
	t.Run("coerces age and status", func(t *testing.T) {
		got, err := ValidateUpdate(map[string]any{"age": 31.0, "status": "0", "email": "x@y.z"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["age"] != 31 || got["status"] != false || got["email"] != "x@y.z" {
			t.Errorf("got %#v", got)
		}
	})

	t.Run("empty update", func(t *testing.T) {
		if _, err := ValidateUpdate(map[string]any{}); !errors.Is(err, ErrEmptyUpdate) {
			t.Errorf("expected ErrEmptyUpdate, got %v", err)
		}
	})

	t.Run("unknown fields listed sorted", func(t *testing.T) {
		_, err := ValidateUpdate(map[string]any{"zeta": 1, "alpha": 2, "name": "A"})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected *ValidationError, got %v", err)
		}
		if ve.Reason != "unknown fields: alpha, zeta" {
			t.Errorf("Reason = %q", ve.Reason)
		}
	})

	t.Run("bad age", func(t *testing.T) {
		_, err := ValidateUpdate(map[string]any{"age": true})
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Reason != CoercionReason {
			t.Errorf("expected coercion error, got %v", err)
		}
	})

	t.Run("text field must be a string", func(t *testing.T) {
		_, err := ValidateUpdate(map[string]any{"name": 5.0})
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("expected *ValidationError, got %v", err)
		}
	})
}
