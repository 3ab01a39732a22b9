package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFile parses a module definition from a YAML file.
func ParseFile(path string) (Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Module{}, fmt.Errorf("read file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses a module definition from YAML bytes.
func Parse(data []byte) (Module, error) {
	var mod Module
	if err := yaml.Unmarshal(data, &mod); err != nil {
		return Module{}, fmt.Errorf("parse yaml: %w", err)
	}

	if err := Validate(mod); err != nil {
		return Module{}, fmt.Errorf("validate module %q: %w", mod.Name, err)
	}

	return mod, nil
}

// ParseDir parses all module definitions from a directory, including
// subdirectories. Files are visited in lexical order so the resulting slice
// is stable across runs.
func ParseDir(dir string) ([]Module, error) {
	var modules []Module

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			subModules, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			modules = append(modules, subModules...)
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		mod, err := ParseFile(path)
		if err != nil {
			return nil, err
		}

		modules = append(modules, mod)
	}

	return modules, nil
}

// Validate validates a module definition.
func Validate(mod Module) error {
	var errs []string

	if mod.Name == "" {
		errs = append(errs, "module name is required")
	} else if !isValidIdentifier(mod.Name) {
		errs = append(errs, fmt.Sprintf("module name %q is not a valid identifier", mod.Name))
	}

	if !strings.HasPrefix(mod.RoutePath, "/") {
		errs = append(errs, fmt.Sprintf("route_path %q must be absolute", mod.RoutePath))
	}

	if len(mod.Columns) == 0 {
		errs = append(errs, "at least one column is required")
	}

	if mod.Parent != nil && (mod.Parent.Module == "" || mod.Parent.ForeignKey == "") {
		errs = append(errs, "parent requires module and foreign_key")
	}

	seenCols := make(map[string]bool)
	for _, col := range mod.Columns {
		if err := validateColumn(col); err != nil {
			errs = append(errs, err.Error())
		}
		if seenCols[col.ID] {
			errs = append(errs, fmt.Sprintf("duplicate column %q", col.ID))
		}
		seenCols[col.ID] = true
	}

	seenFields := make(map[string]bool)
	for _, sec := range mod.Sections {
		for _, field := range sec.Fields {
			if err := validateField(field); err != nil {
				errs = append(errs, err.Error())
			}
			if seenFields[field.Name] {
				errs = append(errs, fmt.Sprintf("duplicate field %q", field.Name))
			}
			seenFields[field.Name] = true
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func validateColumn(col Column) error {
	if !isValidIdentifier(col.ID) {
		return fmt.Errorf("column id %q is not a valid identifier", col.ID)
	}
	switch col.Filter {
	case "", FilterText, FilterRange, FilterMultiSelect, FilterDateRange, FilterExpr:
	default:
		return fmt.Errorf("column %q: unknown filter %q", col.ID, col.Filter)
	}
	switch col.Meta.Format {
	case FormatAuto, FormatNumber, FormatPercentage, FormatCurrency, FormatDate, FormatText:
	default:
		return fmt.Errorf("column %q: unknown format %q", col.ID, col.Meta.Format)
	}
	return nil
}

// validateField validates a single field definition.
func validateField(field Field) error {
	if !isValidIdentifier(field.Name) {
		return fmt.Errorf("field name %q is not a valid identifier", field.Name)
	}

	if !isValidFieldType(field.Type) {
		return fmt.Errorf("field %q: unknown type %q", field.Name, field.Type)
	}

	if field.Type.HasOptions() && len(field.Options) == 0 {
		return fmt.Errorf("field %q: %s type requires options", field.Name, field.Type)
	}

	if field.Type == FieldTypeCustom && field.Component == "" {
		return fmt.Errorf("field %q: custom type requires a component", field.Name)
	}

	for _, c := range field.Constraints {
		if c.Type == ConstraintPattern {
			p, ok := c.Value.(string)
			if !ok {
				return fmt.Errorf("field %q: pattern must be a string", field.Name)
			}
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("field %q: invalid pattern: %w", field.Name, err)
			}
		}
	}

	if s, ok := field.Default.(string); ok && field.Type == FieldTypeSelect && !field.HasOption(s) {
		return fmt.Errorf("field %q: default %q is not a valid option", field.Name, s)
	}

	return nil
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isValidFieldType(t FieldType) bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeCurrency,
		FieldTypePercentage, FieldTypeEmail, FieldTypePhone, FieldTypeDate,
		FieldTypeDateTime, FieldTypeSelect, FieldTypeMulti, FieldTypeCheckbox,
		FieldTypeCustom:
		return true
	default:
		return false
	}
}
