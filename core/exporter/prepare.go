package exporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
)

// Request describes one export.
type Request struct {
	Module string
	Title  string

	Columns []schema.Column

	// Rows are every row of the module; Filtered the rows passing the
	// current filters and search. Filtered nil means Rows.
	Rows     []map[string]any
	Filtered []map[string]any

	Mode        Mode
	SelectedIDs []string

	// IDKey is the record key matched against SelectedIDs, "id" by default.
	IDKey string

	Config Config

	// Filters and Search describe the list state for the metadata sheet.
	Filters []string
	Search  string

	Now time.Time
}

// Column is one exported column.
type Column struct {
	ID     string
	Key    string
	Header string
	Format Detection
	Enum   map[string]schema.EnumOption
}

// Meta is the export context written next to the data.
type Meta struct {
	Title       string
	GeneratedAt time.Time
	Mode        Mode
	RecordCount int
	TotalCount  int
	Filters     []string
	Search      string
}

// Table is a prepared export: typed cells in column order.
type Table struct {
	Module  string
	Columns []Column
	Rows    [][]any
	Options Options
	Meta    Meta
}

// Text renders cell (r, c) for text formats.
func (t Table) Text(r, c int) string {
	return formatText(t.Rows[r][c], t.Columns[c].Format, t.Options.DateFormat)
}

// Prepare selects rows and columns and converts cells to their detected
// types.
func Prepare(req Request) (Table, error) {
	rows, err := selectRows(req)
	if err != nil {
		return Table{}, err
	}

	cols := exportColumns(req.Columns, req.Config)
	if len(cols) == 0 {
		return Table{}, ErrNoColumns
	}

	opts := req.Config.ExportOptions
	if opts.DateFormat == "" {
		opts.DateFormat = DateDMY
	}
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	title := req.Title
	if title == "" {
		title = convention.TitleCase(req.Module)
	}

	t := Table{
		Module:  req.Module,
		Options: opts,
		Meta: Meta{
			Title:       title,
			GeneratedAt: now,
			Mode:        req.Mode,
			RecordCount: len(rows),
			TotalCount:  len(req.Rows),
			Filters:     req.Filters,
			Search:      req.Search,
		},
	}

	for _, c := range cols {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = cellValue(row[c.Key()], c)
		}
		det := columnFormat(c, values)
		t.Columns = append(t.Columns, Column{
			ID:     c.ID,
			Key:    c.Key(),
			Header: c.Title(),
			Format: det,
			Enum:   c.Meta.EnumConfig,
		})
	}

	t.Rows = make([][]any, len(rows))
	for i, row := range rows {
		cells := make([]any, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = convert(cellValue(row[c.Key], cols[j]), c.Format)
		}
		t.Rows[i] = cells
	}
	return t, nil
}

func selectRows(req Request) ([]map[string]any, error) {
	switch req.Mode {
	case ModeSelected:
		if len(req.SelectedIDs) == 0 {
			return nil, ErrNothingSelected
		}
		key := req.IDKey
		if key == "" {
			key = "id"
		}
		want := make(map[string]bool, len(req.SelectedIDs))
		for _, id := range req.SelectedIDs {
			want[id] = true
		}
		var out []map[string]any
		for _, row := range req.Rows {
			if want[search.Stringify(row[key])] {
				out = append(out, row)
			}
		}
		return out, nil
	case ModeAll:
		return req.Rows, nil
	case ModeFiltered, "":
		if req.Filtered != nil {
			return req.Filtered, nil
		}
		return req.Rows, nil
	default:
		return nil, fmt.Errorf("unknown export mode %q", req.Mode)
	}
}

// exportColumns applies the column selection and order of cfg.
func exportColumns(cols []schema.Column, cfg Config) []schema.Column {
	ordered := convention.ExportOrder(cols, cfg.ColumnOrder)
	if len(cfg.SelectedColumns) == 0 {
		return ordered
	}
	keep := make(map[string]bool, len(cfg.SelectedColumns))
	for _, id := range cfg.SelectedColumns {
		keep[id] = true
	}
	out := ordered[:0:0]
	for _, c := range ordered {
		if keep[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// cellValue maps enum values to labels and flattens composite values.
func cellValue(v any, c schema.Column) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return c.EnumLabel(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, c.EnumLabel(search.Stringify(e)))
		}
		return strings.Join(parts, ", ")
	case []string:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, c.EnumLabel(e))
		}
		return strings.Join(parts, ", ")
	case bool:
		if x {
			return "Có"
		}
		return "Không"
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return v
	}
}

func columnFormat(c schema.Column, values []any) Detection {
	if c.Meta.Format != schema.FormatAuto {
		return explicit(c.Meta.Format, values)
	}
	return DetectFormat(values)
}
