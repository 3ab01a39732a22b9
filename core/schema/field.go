package schema

// Section groups fields under a title in detail and form views.
type Section struct {
	Title  string  `yaml:"title" json:"title"`
	Fields []Field `yaml:"fields" json:"fields"`
}

// Field declares one form input / detail value.
type Field struct {
	Name  string    `yaml:"name" json:"name"`
	Label string    `yaml:"label,omitempty" json:"label,omitempty"`
	Type  FieldType `yaml:"type" json:"type"`

	Required bool `yaml:"required,omitempty" json:"required,omitempty"`
	ReadOnly bool `yaml:"read_only,omitempty" json:"read_only,omitempty"`

	// Options lists valid values for select and multiselect fields.
	Options []Option `yaml:"options,omitempty" json:"options,omitempty"`

	// Component names the renderer of a custom field.
	Component string `yaml:"component,omitempty" json:"component,omitempty"`

	Placeholder string `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`

	// Constraints defines validation rules for this field.
	Constraints []Constraint `yaml:"constraints,omitempty" json:"constraints,omitempty"`
}

// Option is one choice of a select field.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label,omitempty" json:"label,omitempty"`
}

// FieldType represents the type of a form field.
type FieldType string

const (
	FieldTypeText       FieldType = "text"
	FieldTypeTextarea   FieldType = "textarea"
	FieldTypeNumber     FieldType = "number"
	FieldTypeCurrency   FieldType = "currency"
	FieldTypePercentage FieldType = "percentage"
	FieldTypeEmail      FieldType = "email"
	FieldTypePhone      FieldType = "phone"
	FieldTypeDate       FieldType = "date"
	FieldTypeDateTime   FieldType = "datetime"
	FieldTypeSelect     FieldType = "select"
	FieldTypeMulti      FieldType = "multiselect"
	FieldTypeCheckbox   FieldType = "checkbox"

	// FieldTypeCustom is rendered by the component named in Field.Component.
	FieldTypeCustom FieldType = "custom"
)

// IsNumeric reports whether values of this type are numbers.
func (t FieldType) IsNumeric() bool {
	return t == FieldTypeNumber || t == FieldTypeCurrency || t == FieldTypePercentage
}

// HasOptions reports whether the type draws values from Options.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeMulti
}

// DisplayLabel returns Label, falling back to Name.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// OptionLabel maps an option value to its label.
func (f Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			if o.Label != "" {
				return o.Label
			}
			return o.Value
		}
	}
	return value
}

// HasOption reports whether value is one of the declared options.
func (f Field) HasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
