package formatter

import (
	"fmt"
	"io"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/listview"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func (f *YAMLFormatter) Name() string        { return "yaml" }
func (f *YAMLFormatter) Description() string { return "YAML output format" }

// FormatPage formats a page with its paging counters.
func (f *YAMLFormatter) FormatPage(w io.Writer, mod convention.Derived, page listview.Page, opts FormatOptions) error {
	return f.encode(w, document(mod, page, opts))
}

// FormatRecord formats a single record as YAML.
func (f *YAMLFormatter) FormatRecord(w io.Writer, mod convention.Derived, record map[string]any, opts FormatOptions) error {
	var data map[string]any
	if record != nil {
		data = record
		if len(opts.Columns) > 0 {
			data = pick(mod, record, columns(mod, opts.Columns))
		}
	}
	return f.encode(w, map[string]any{"module": mod.Source.Name, "data": data})
}

// FormatError formats an error as YAML.
func (f *YAMLFormatter) FormatError(w io.Writer, err error) error {
	return f.encode(w, map[string]any{"error": err.Error()})
}

func (f *YAMLFormatter) encode(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewYAMLFormatter()); err != nil {
		fmt.Printf("failed to register yaml formatter: %v\n", err)
	}
}
