package form

import (
	"strings"
	"time"

	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// RenderedSection is a form section as sent to clients that draw
// server-described forms.
type RenderedSection struct {
	Title  string          `json:"title"`
	Fields []RenderedField `json:"fields"`
}

// RenderedField is one input with its current value and state.
type RenderedField struct {
	Name        string           `json:"name"`
	Label       string           `json:"label"`
	Kind        schema.FieldType `json:"kind"`
	Component   string           `json:"component,omitempty"`
	Value       any              `json:"value,omitempty"`
	Error       string           `json:"error,omitempty"`
	Options     []schema.Option  `json:"options,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Required    bool             `json:"required,omitempty"`
	Disabled    bool             `json:"disabled,omitempty"`
}

// Render describes every field with its value and error. Inputs are
// disabled while a submission is in flight.
func (e *Engine) Render() []RenderedSection {
	e.mu.Lock()
	values := e.merged()
	submitting := e.status == StatusSubmitting
	errs := e.errors
	out := make([]RenderedSection, 0, len(e.sections))

	for _, sec := range e.sections {
		rs := RenderedSection{Title: sec.Title, Fields: make([]RenderedField, 0, len(sec.Fields))}
		for _, f := range sec.Fields {
			rs.Fields = append(rs.Fields, RenderedField{
				Name:        f.Name,
				Label:       f.DisplayLabel(),
				Kind:        f.Type,
				Component:   f.Component,
				Value:       values[f.Name],
				Error:       errs[f.Name],
				Options:     f.Options,
				Placeholder: f.Placeholder,
				Required:    f.Required,
				Disabled:    submitting || f.ReadOnly,
			})
		}
		out = append(out, rs)
	}
	e.mu.Unlock()
	return out
}

// DetailSection is a read-only section of a detail view.
type DetailSection struct {
	Title string       `json:"title"`
	Items []DetailItem `json:"items"`
}

// DetailItem is one labeled value with its display text.
type DetailItem struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Value   any    `json:"value,omitempty"`
	Display string `json:"display"`
}

// RenderDetail lays out record by sections for a read-only detail view.
func RenderDetail(sections []schema.Section, record map[string]any) []DetailSection {
	out := make([]DetailSection, 0, len(sections))
	for _, sec := range sections {
		ds := DetailSection{Title: sec.Title, Items: make([]DetailItem, 0, len(sec.Fields))}
		for _, f := range sec.Fields {
			v := record[f.Name]
			ds.Items = append(ds.Items, DetailItem{
				Name:    f.Name,
				Label:   f.DisplayLabel(),
				Value:   v,
				Display: Display(f, v),
			})
		}
		out = append(out, ds)
	}
	return out
}

// Empty is the display text of a missing value.
const Empty = "—"

var vi = message.NewPrinter(language.Vietnamese)

// Display renders a value for reading: option labels, Vietnamese number
// grouping, dd/mm/yyyy dates and Có/Không for checkboxes.
func Display(f schema.Field, v any) string {
	if v == nil {
		return Empty
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return Empty
	}

	switch f.Type {
	case schema.FieldTypeSelect:
		return f.OptionLabel(search.Stringify(v))

	case schema.FieldTypeMulti:
		var labels []string
		switch xs := v.(type) {
		case []string:
			for _, x := range xs {
				labels = append(labels, f.OptionLabel(x))
			}
		case []any:
			for _, x := range xs {
				labels = append(labels, f.OptionLabel(search.Stringify(x)))
			}
		default:
			return f.OptionLabel(search.Stringify(v))
		}
		if len(labels) == 0 {
			return Empty
		}
		return strings.Join(labels, ", ")

	case schema.FieldTypeNumber, schema.FieldTypeCurrency, schema.FieldTypePercentage:
		n, err := schema.ToFloat64(v)
		if err != nil {
			return search.Stringify(v)
		}
		s := vi.Sprint(number.Decimal(n, number.MaxFractionDigits(2)))
		switch f.Type {
		case schema.FieldTypeCurrency:
			return s + " ₫"
		case schema.FieldTypePercentage:
			return s + "%"
		}
		return s

	case schema.FieldTypeDate:
		if t, ok := parseTime(v); ok {
			return t.Format("02/01/2006")
		}

	case schema.FieldTypeDateTime:
		if t, ok := parseTime(v); ok {
			return t.Format("02/01/2006 15:04")
		}

	case schema.FieldTypeCheckbox:
		switch x := v.(type) {
		case bool:
			if x {
				return "Có"
			}
			return "Không"
		case string:
			if x == "true" {
				return "Có"
			}
			if x == "false" {
				return "Không"
			}
		}
	}
	return search.Stringify(v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

func parseTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
