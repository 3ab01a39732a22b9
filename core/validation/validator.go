// Package validation checks form submissions against module sections.
// Every failure is reported per field with a localized message; a
// submission with any failure never reaches storage.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/artpar/erpkit/core/schema"
	"golang.org/x/text/message"
)

// Validator validates submitted values against form sections.
type Validator struct {
	locale Locale
	p      *message.Printer
}

// New creates a validator with messages in locale. An unknown locale falls
// back to Vietnamese.
func New(locale Locale) *Validator {
	if locale != English {
		locale = Vietnamese
	}
	return &Validator{locale: locale, p: printer(locale)}
}

// Locale returns the message language.
func (v *Validator) Locale() Locale { return v.locale }

// Validate validates a full submission, as for a create. Required fields
// must be present unless they declare a default.
func (v *Validator) Validate(sections []schema.Section, data map[string]any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	for _, sec := range sections {
		for _, field := range sec.Fields {
			value, has := data[field.Name]
			if isBlank(value) {
				if field.Required && !(field.Default != nil && !has) {
					result.Add(v.newError(field.Name, keyRequired, nil))
				}
				continue
			}
			v.validateValue(&result, field, value)
		}
	}
	return result
}

// ValidatePatch validates a partial update. Only fields present in data are
// checked; clearing a required field is still an error.
func (v *Validator) ValidatePatch(sections []schema.Section, data map[string]any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}

	for _, sec := range sections {
		for _, field := range sec.Fields {
			value, has := data[field.Name]
			if !has {
				continue
			}
			if isBlank(value) {
				if field.Required {
					result.Add(v.newError(field.Name, keyRequired, nil))
				}
				continue
			}
			v.validateValue(&result, field, value)
		}
	}
	return result
}

// ValidateField validates one value.
func (v *Validator) ValidateField(field schema.Field, value any) schema.ValidationResult {
	result := schema.ValidationResult{Valid: true}
	if isBlank(value) {
		if field.Required {
			result.Add(v.newError(field.Name, keyRequired, nil))
		}
		return result
	}
	v.validateValue(&result, field, value)
	return result
}

func (v *Validator) validateValue(result *schema.ValidationResult, field schema.Field, value any) {
	before := len(result.Errors)
	v.validateFieldType(result, field, value)
	// Constraints assume a well-typed value.
	if len(result.Errors) > before {
		return
	}
	v.validateConstraints(result, field, value)
}

// validateFieldType validates the value matches the expected field type.
func (v *Validator) validateFieldType(result *schema.ValidationResult, field schema.Field, value any) {
	switch field.Type {
	case schema.FieldTypeNumber, schema.FieldTypeCurrency, schema.FieldTypePercentage:
		if _, isBool := value.(bool); isBool {
			result.Add(v.newError(field.Name, keyNumber, value))
			return
		}
		if _, err := schema.ToFloat64(value); err != nil {
			result.Add(v.newError(field.Name, keyNumber, value))
		}

	case schema.FieldTypeEmail:
		str, ok := value.(string)
		if !ok {
			result.Add(v.newError(field.Name, keyEmail, value))
			return
		}
		addr, err := mail.ParseAddress(str)
		if err != nil || addr.Address != strings.TrimSpace(str) {
			result.Add(v.newError(field.Name, keyEmail, value))
		}

	case schema.FieldTypePhone:
		str, ok := value.(string)
		if !ok || !isPhone(str) {
			result.Add(v.newError(field.Name, keyPhone, value))
		}

	case schema.FieldTypeDate:
		if !isDate(value, dateLayouts) {
			result.Add(v.newError(field.Name, keyDate, value))
		}

	case schema.FieldTypeDateTime:
		if !isDate(value, dateTimeLayouts) {
			result.Add(v.newError(field.Name, keyDateTime, value))
		}

	case schema.FieldTypeSelect:
		if len(field.Options) == 0 {
			return
		}
		str, ok := value.(string)
		if !ok || !field.HasOption(str) {
			result.Add(v.newError(field.Name, keyOption, value))
		}

	case schema.FieldTypeMulti:
		vals, ok := stringSlice(value)
		if !ok {
			result.Add(v.newError(field.Name, keyOption, value))
			return
		}
		if len(field.Options) == 0 {
			return
		}
		for _, s := range vals {
			if !field.HasOption(s) {
				result.Add(v.newError(field.Name, keyOption, s))
				return
			}
		}

	case schema.FieldTypeCheckbox:
		switch x := value.(type) {
		case bool:
		case string:
			if x != "true" && x != "false" {
				result.Add(v.newError(field.Name, keyBool, value))
			}
		default:
			result.Add(v.newError(field.Name, keyBool, value))
		}
	}
}

// validateConstraints validates the value against field constraints.
func (v *Validator) validateConstraints(result *schema.ValidationResult, field schema.Field, value any) {
	for _, c := range field.Constraints {
		if err := schema.ValidateConstraint(field.Name, value, c); err != nil {
			if !err.Custom {
				err.Message = v.constraintMessage(*err)
			}
			result.Add(*err)
		}
	}
}

func (v *Validator) constraintMessage(e schema.ConstraintError) string {
	switch schema.ConstraintType(e.Constraint) {
	case schema.ConstraintMin, schema.ConstraintMax, schema.ConstraintMinLength,
		schema.ConstraintMaxLength, schema.ConstraintOneOf:
		return v.p.Sprintf(e.Constraint, e.Param)
	default:
		return v.p.Sprintf(e.Constraint)
	}
}

func (v *Validator) newError(field, key string, value any) schema.ConstraintError {
	return schema.ConstraintError{
		Field:      field,
		Constraint: key,
		Value:      value,
		Message:    v.p.Sprintf(key),
	}
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	default:
		return false
	}
}

var phonePattern = regexp.MustCompile(`^(\+84|84|0)\d{9,10}$`)

// isPhone accepts Vietnamese numbers written with spaces, dots or dashes.
func isPhone(s string) bool {
	s = strings.NewReplacer(" ", "", ".", "", "-", "", "(", "", ")", "").Replace(s)
	return phonePattern.MatchString(s)
}

var (
	dateLayouts     = []string{"2006-01-02", "02/01/2006", time.RFC3339}
	dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04", "02/01/2006 15:04"}
)

func isDate(v any, layouts []string) bool {
	switch x := v.(type) {
	case time.Time:
		return !x.IsZero()
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range layouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

func stringSlice(v any) ([]string, bool) {
	switch xs := v.(type) {
	case []string:
		return xs, true
	case []any:
		out := make([]string, 0, len(xs))
		for _, x := range xs {
			s, ok := x.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
