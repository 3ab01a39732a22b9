package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/form"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Name() string        { return "table" }
func (f *TableFormatter) Description() string { return "Aligned text table output" }

// FormatPage formats a page as a table with a page footer.
func (f *TableFormatter) FormatPage(w io.Writer, mod convention.Derived, page listview.Page, opts FormatOptions) error {
	if len(page.Data) == 0 {
		fmt.Fprintln(w, "Không có dữ liệu.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	cols := columns(mod, opts.Columns)
	fields := fieldsByName(mod)

	if !opts.NoHeader {
		headers := make([]string, len(cols))
		for i, c := range cols {
			headers[i] = strings.ToUpper(c.Title())
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, row := range page.Data {
		values := make([]string, len(cols))
		for i, c := range cols {
			values[i] = truncate(cell(c, fields, row[c.Key()]), opts.MaxWidth)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nTrang %d/%d, %d bản ghi\n", page.Page, page.TotalPages, page.Total)
	return err
}

// FormatRecord formats a record by form sections as label/value pairs.
func (f *TableFormatter) FormatRecord(w io.Writer, mod convention.Derived, record map[string]any, opts FormatOptions) error {
	if record == nil {
		fmt.Fprintln(w, "Không tìm thấy bản ghi.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, sec := range form.RenderDetail(mod.Source.Sections, record) {
		if sec.Title != "" {
			if i > 0 {
				fmt.Fprintln(tw)
			}
			fmt.Fprintf(tw, "[%s]\n", sec.Title)
		}
		for _, item := range sec.Items {
			fmt.Fprintf(tw, "%s:\t%s\n", item.Label, item.Display)
		}
	}
	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Lỗi: %s\n", err.Error())
	return werr
}

func fieldsByName(mod convention.Derived) map[string]schema.Field {
	out := make(map[string]schema.Field, len(mod.Fields))
	for _, f := range mod.Fields {
		out[f.Name] = f
	}
	return out
}

// cell renders a value the way the list shows it: enum labels first, then
// the form field's display rules.
func cell(c schema.Column, fields map[string]schema.Field, v any) string {
	if v == nil {
		return form.Empty
	}
	if len(c.Meta.EnumConfig) > 0 {
		return c.EnumLabel(search.Stringify(v))
	}
	if f, ok := fields[c.Key()]; ok {
		return form.Display(f, v)
	}
	return search.Stringify(v)
}

func truncate(s string, maxWidth int) string {
	r := []rune(s)
	if maxWidth <= 3 || len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}

func init() {
	Register(NewTableFormatter())
}
