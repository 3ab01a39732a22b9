package schema

import (
	"strings"
	"testing"
)

func TestConstraintError(t *testing.T) {
	err := ConstraintError{
		Field:      "email",
		Constraint: "pattern",
		Value:      "invalid-email",
		Message:    "must be a valid email",
	}

	expected := "email: must be a valid email"
	if got := err.Error(); got != expected {
		t.Errorf("ConstraintError.Error() = %q, want %q", got, expected)
	}
}

func TestValidationResult(t *testing.T) {
	result := ValidationResult{Valid: true}
	if got := result.Error(); got != "" {
		t.Errorf("Error() on valid result = %q, want empty", got)
	}

	result.AddError("ho_ten", "required", nil, "is required")
	result.AddError("ho_ten", "min_length", "a", "too short")
	result.AddError("email", "pattern", "x", "is invalid")

	if result.Valid {
		t.Error("Valid should be false after AddError")
	}
	if !strings.Contains(result.Error(), "email: is invalid") {
		t.Errorf("Error() = %q, missing email message", result.Error())
	}

	fe := result.FieldErrors()
	if fe["ho_ten"] != "is required" {
		t.Errorf("FieldErrors()[ho_ten] = %q, want first message", fe["ho_ten"])
	}
	if len(fe) != 2 {
		t.Errorf("FieldErrors() has %d entries, want 2", len(fe))
	}
}

func TestValidateConstraint(t *testing.T) {
	tests := []struct {
		name       string
		value      any
		constraint Constraint
		wantErr    bool
	}{
		{"min ok", 18, Constraint{Type: ConstraintMin, Value: 18}, false},
		{"min fail", 17, Constraint{Type: ConstraintMin, Value: 18}, true},
		{"min numeric string", "5", Constraint{Type: ConstraintMin, Value: 10}, true},
		{"min non numeric skipped", "abc", Constraint{Type: ConstraintMin, Value: 10}, false},
		{"max ok", 100.0, Constraint{Type: ConstraintMax, Value: 100}, false},
		{"max fail", 100.5, Constraint{Type: ConstraintMax, Value: 100}, true},
		{"min_length counts runes", "Đào", Constraint{Type: ConstraintMinLength, Value: 3}, false},
		{"min_length fail", "Lê", Constraint{Type: ConstraintMinLength, Value: 3}, true},
		{"max_length fail", "Nguyễn Văn An", Constraint{Type: ConstraintMaxLength, Value: 5}, true},
		{"pattern ok", "0912345678", Constraint{Type: ConstraintPattern, Value: `^0\d{9}$`}, false},
		{"pattern fail", "12345", Constraint{Type: ConstraintPattern, Value: `^0\d{9}$`}, true},
		{"pattern empty skipped", "", Constraint{Type: ConstraintPattern, Value: `^0\d{9}$`}, false},
		{"not_empty fail", "   ", Constraint{Type: ConstraintNotEmpty}, true},
		{"one_of ok", "nam", Constraint{Type: ConstraintOneOf, Value: []any{"nam", "nu"}}, false},
		{"one_of fail", "khac", Constraint{Type: ConstraintOneOf, Value: []string{"nam", "nu"}}, true},
		{"unknown type", "x", Constraint{Type: "bogus"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConstraint("f", tt.value, tt.constraint)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConstraint() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConstraint_CustomMessage(t *testing.T) {
	c := Constraint{Type: ConstraintMin, Value: 0, Message: "Lương không được âm"}
	err := ValidateConstraint("luong", -1, c)
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Message != "Lương không được âm" || !err.Custom {
		t.Errorf("got message %q custom=%v", err.Message, err.Custom)
	}
	if err.Param != 0.0 {
		t.Errorf("Param = %v, want 0", err.Param)
	}
}
