package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Constraint defines a validation rule for a field.
type Constraint struct {
	// Type is the constraint type (min, max, min_length, max_length, pattern, etc.)
	Type ConstraintType `yaml:"type" json:"type"`

	// Value is the constraint parameter (number, regex pattern, etc.)
	Value any `yaml:"value" json:"value"`

	// Message overrides the localized error message.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// ConstraintType identifies the type of constraint.
type ConstraintType string

const (
	ConstraintMin       ConstraintType = "min"
	ConstraintMax       ConstraintType = "max"
	ConstraintMinLength ConstraintType = "min_length"
	ConstraintMaxLength ConstraintType = "max_length"
	ConstraintPattern   ConstraintType = "pattern"
	ConstraintNotEmpty  ConstraintType = "not_empty"
	ConstraintOneOf     ConstraintType = "one_of"
)

// ConstraintError represents a validation failure on one field.
type ConstraintError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`

	// Param is the constraint parameter, kept for message localization.
	Param any `json:"-"`

	// Custom is set when Message came from the module definition.
	Custom bool `json:"-"`
}

func (e ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult holds all validation errors for a submission.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ConstraintError `json:"errors,omitempty"`
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, constraint string, value any, message string) {
	r.Valid = false
	r.Errors = append(r.Errors, ConstraintError{
		Field:      field,
		Constraint: constraint,
		Value:      value,
		Message:    message,
	})
}

// Add appends an already built error.
func (r *ValidationResult) Add(e ConstraintError) {
	r.Valid = false
	r.Errors = append(r.Errors, e)
}

// FieldErrors returns the first message per field.
func (r ValidationResult) FieldErrors() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		if _, seen := out[e.Field]; !seen {
			out[e.Field] = e.Message
		}
	}
	return out
}

// Error returns a combined error message.
func (r ValidationResult) Error() string {
	if r.Valid {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConstraint validates a value against a single constraint.
// This is a PURE function. Messages are English defaults unless the
// constraint carries its own.
func ValidateConstraint(fieldName string, value any, c Constraint) *ConstraintError {
	switch c.Type {
	case ConstraintMin:
		return validateBound(fieldName, value, c, func(v, b float64) bool { return v < b }, "must be at least %v")
	case ConstraintMax:
		return validateBound(fieldName, value, c, func(v, b float64) bool { return v > b }, "must be at most %v")
	case ConstraintMinLength:
		return validateLength(fieldName, value, c, func(n, b int) bool { return n < b }, "must be at least %d characters")
	case ConstraintMaxLength:
		return validateLength(fieldName, value, c, func(n, b int) bool { return n > b }, "must be at most %d characters")
	case ConstraintPattern:
		return validatePattern(fieldName, value, c)
	case ConstraintNotEmpty:
		return validateNotEmpty(fieldName, value, c)
	case ConstraintOneOf:
		return validateOneOf(fieldName, value, c)
	default:
		return nil
	}
}

func newConstraintError(field string, c Constraint, value any, param any, fallback string) *ConstraintError {
	e := &ConstraintError{
		Field:      field,
		Constraint: string(c.Type),
		Value:      value,
		Param:      param,
		Message:    fallback,
	}
	if c.Message != "" {
		e.Message = c.Message
		e.Custom = true
	}
	return e
}

func validateBound(field string, value any, c Constraint, fails func(v, b float64) bool, format string) *ConstraintError {
	bound, err := ToFloat64(c.Value)
	if err != nil {
		return nil // Invalid constraint config, skip
	}
	val, err := ToFloat64(value)
	if err != nil {
		return nil // Type checks report non-numeric input
	}
	if fails(val, bound) {
		return newConstraintError(field, c, value, bound, fmt.Sprintf(format, bound))
	}
	return nil
}

func validateLength(field string, value any, c Constraint, fails func(n, b int) bool, format string) *ConstraintError {
	bound, err := toInt(c.Value)
	if err != nil {
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return nil
	}
	n := utf8.RuneCountInString(str)
	if fails(n, bound) {
		return newConstraintError(field, c, n, bound, fmt.Sprintf(format, bound))
	}
	return nil
}

func validatePattern(field string, value any, c Constraint) *ConstraintError {
	pattern, ok := c.Value.(string)
	if !ok {
		return nil
	}
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil // Rejected by Validate at parse time
	}
	if !re.MatchString(str) {
		return newConstraintError(field, c, value, pattern, "does not match required pattern")
	}
	return nil
}

func validateNotEmpty(field string, value any, c Constraint) *ConstraintError {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	if strings.TrimSpace(str) == "" {
		return newConstraintError(field, c, value, nil, "must not be empty")
	}
	return nil
}

func validateOneOf(field string, value any, c Constraint) *ConstraintError {
	var allowed []string
	switch vals := c.Value.(type) {
	case []any:
		for _, v := range vals {
			allowed = append(allowed, fmt.Sprintf("%v", v))
		}
	case []string:
		allowed = vals
	default:
		return nil
	}

	strVal := fmt.Sprintf("%v", value)
	for _, a := range allowed {
		if a == strVal {
			return nil
		}
	}
	list := strings.Join(allowed, ", ")
	return newConstraintError(field, c, value, list, "must be one of: "+list)
}

// ToFloat64 converts numeric values and numeric strings to float64.
func ToFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
