// Package formatter renders list pages and records for the terminal.
// Formatters are pluggable: table, json and yaml are registered by default.
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/schema"
)

// Formatter converts list pages and records to one output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatPage formats one page of a module list.
	FormatPage(w io.Writer, mod convention.Derived, page listview.Page, opts FormatOptions) error

	// FormatRecord formats a single record.
	FormatRecord(w io.Writer, mod convention.Derived, record map[string]any, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns lists the column ids to include (nil = the module's visible
	// list columns).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long values, in characters (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter, or nil when none is registered.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.formatters[r.defaultFmt]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// columns resolves the columns to print: the requested ids in order, or
// every visible list column.
func columns(mod convention.Derived, requested []string) []schema.Column {
	if len(requested) > 0 {
		byID := make(map[string]schema.Column, len(mod.Columns))
		for _, c := range mod.Columns {
			byID[c.ID] = c
		}
		out := make([]schema.Column, 0, len(requested))
		for _, id := range requested {
			c, ok := byID[id]
			if !ok {
				c = schema.Column{ID: id}
			}
			out = append(out, c)
		}
		return out
	}

	var out []schema.Column
	for _, c := range mod.Columns {
		if c.ID == schema.ColumnActions || c.ID == schema.ColumnSelect || c.Meta.Hidden {
			continue
		}
		out = append(out, c)
	}
	return out
}

// pick keeps the id and the given columns of record.
func pick(mod convention.Derived, record map[string]any, cols []schema.Column) map[string]any {
	out := make(map[string]any, len(cols)+1)
	pk := mod.Source.PrimaryKey()
	if v, ok := record[pk]; ok {
		out[pk] = v
	}
	for _, c := range cols {
		if v, ok := record[c.Key()]; ok {
			out[c.ID] = v
		}
	}
	return out
}

// document is the page shape shared by the json and yaml formatters.
func document(mod convention.Derived, page listview.Page, opts FormatOptions) map[string]any {
	cols := columns(mod, opts.Columns)
	data := make([]map[string]any, len(page.Data))
	for i, row := range page.Data {
		data[i] = pick(mod, row, cols)
	}
	return map[string]any{
		"module":      mod.Source.Name,
		"page":        page.Page,
		"page_size":   page.PageSize,
		"total":       page.Total,
		"total_pages": page.TotalPages,
		"data":        data,
	}
}
