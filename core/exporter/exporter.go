// Package exporter turns list rows into downloadable documents. Sinks for
// each format are pluggable through a Registry.
package exporter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Mode selects which rows an export covers.
type Mode string

const (
	ModeAll      Mode = "all"
	ModeFiltered Mode = "filtered"
	ModeSelected Mode = "selected"
)

// Format names an output format.
type Format string

const (
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// Date layouts accepted in Options.DateFormat.
const (
	DateDMY = "dd/mm/yyyy"
	DateMDY = "mm/dd/yyyy"
	DateYMD = "yyyy-mm-dd"
)

// Options are the formatting choices of an export.
type Options struct {
	IncludeMetadata        bool   `json:"includeMetadata"`
	ProfessionalFormatting bool   `json:"professionalFormatting"`
	DateFormat             string `json:"dateFormat,omitempty"`
}

// DefaultOptions are used when nothing was saved.
func DefaultOptions() Options {
	return Options{IncludeMetadata: true, ProfessionalFormatting: true, DateFormat: DateDMY}
}

// UnmarshalJSON takes keys missing from data from DefaultOptions.
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	v := plain(DefaultOptions())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Options(v)
	return nil
}

// Config is a reusable export configuration, saved as templates and as
// the last used preferences.
type Config struct {
	SelectedColumns []string       `json:"selectedColumns"`
	ColumnOrder     map[string]int `json:"columnOrder"`
	ExportOptions   Options        `json:"exportOptions"`
	DefaultMode     Mode           `json:"defaultMode,omitempty"`
	DefaultFormat   Format         `json:"defaultFormat,omitempty"`
}

// UnmarshalJSON uses DefaultOptions when data has no exportOptions.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	v := plain{ExportOptions: DefaultOptions()}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Config(v)
	return nil
}

// Errors returned by the pipeline.
var (
	ErrNothingSelected = errors.New("no rows selected")
	ErrNoColumns       = errors.New("no columns to export")
	ErrUnknownFormat   = errors.New("unknown export format")
)

// Sink renders a prepared table in one format.
type Sink interface {
	// Format returns the format identifier.
	Format() Format

	// Extension is the file extension without the dot.
	Extension() string

	// ContentType is the MIME type of the output.
	ContentType() string

	// Write renders t to w.
	Write(w io.Writer, t Table) error
}

// Registry manages the available sinks.
type Registry struct {
	mu    sync.RWMutex
	sinks map[Format]Sink
}

// NewRegistry creates a registry holding sinks.
func NewRegistry(sinks ...Sink) *Registry {
	r := &Registry{sinks: make(map[Format]Sink)}
	for _, s := range sinks {
		r.Register(s)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in sink.
func DefaultRegistry(layout Layout) *Registry {
	return NewRegistry(NewExcel(layout), NewPDF(layout), CSV{}, JSON{})
}

// Register adds or replaces a sink.
func (r *Registry) Register(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks[s.Format()] = s
}

// Get returns the sink of a format.
func (r *Registry) Get(f Format) (Sink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sinks[f]
	return s, ok
}

// Formats lists the registered formats, sorted.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.sinks))
	for f := range r.sinks {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Export prepares req and writes it with the sink of format. It returns the
// suggested filename.
func (r *Registry) Export(w io.Writer, format Format, req Request) (string, int, error) {
	sink, ok := r.Get(format)
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	t, err := Prepare(req)
	if err != nil {
		return "", 0, err
	}
	if err := sink.Write(w, t); err != nil {
		return "", 0, fmt.Errorf("write %s: %w", format, err)
	}
	return Filename(t.Module, sink.Extension(), t.Meta.GeneratedAt), len(t.Rows), nil
}

// Filename returns "{module}_export_{yyyymmdd_HHMMSS}.{ext}".
func Filename(module, ext string, at time.Time) string {
	if module == "" {
		module = "export"
	}
	return fmt.Sprintf("%s_export_%s.%s", module, at.Format("20060102_150405"), ext)
}
