package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/listview"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Name() string        { return "json" }
func (f *JSONFormatter) Description() string { return "JSON output format" }

// FormatPage formats a page with its paging counters.
func (f *JSONFormatter) FormatPage(w io.Writer, mod convention.Derived, page listview.Page, opts FormatOptions) error {
	return f.encode(w, document(mod, page, opts), opts.Compact)
}

// FormatRecord formats a single record as JSON.
func (f *JSONFormatter) FormatRecord(w io.Writer, mod convention.Derived, record map[string]any, opts FormatOptions) error {
	var data map[string]any
	if record != nil {
		data = record
		if len(opts.Columns) > 0 {
			data = pick(mod, record, columns(mod, opts.Columns))
		}
	}
	return f.encode(w, map[string]any{"module": mod.Source.Name, "data": data}, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()}, false)
}

func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
