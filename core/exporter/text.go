package exporter

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"time"
)

// CSV writes comma separated values with display-formatted cells. A UTF-8
// byte order mark lets spreadsheet programs pick the right encoding.
type CSV struct{}

func (CSV) Format() Format      { return FormatCSV }
func (CSV) Extension() string   { return "csv" }
func (CSV) ContentType() string { return "text/csv; charset=utf-8" }

// Write renders t as CSV.
func (CSV) Write(w io.Writer, t Table) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		header[j] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range t.Rows {
		rec := make([]string, len(t.Columns))
		for j := range t.Columns {
			rec[j] = t.Text(i, j)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes the rows as objects keyed by column header, with typed
// values and dates in ISO form.
type JSON struct{}

func (JSON) Format() Format      { return FormatJSON }
func (JSON) Extension() string   { return "json" }
func (JSON) ContentType() string { return "application/json" }

type jsonDocument struct {
	Title       string           `json:"title"`
	GeneratedAt time.Time        `json:"generated_at"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
}

// Write renders t as JSON.
func (JSON) Write(w io.Writer, t Table) error {
	doc := jsonDocument{
		Title:       t.Meta.Title,
		GeneratedAt: t.Meta.GeneratedAt,
		Rows:        make([]map[string]any, len(t.Rows)),
	}
	for _, c := range t.Columns {
		doc.Columns = append(doc.Columns, c.Header)
	}
	for i, row := range t.Rows {
		obj := make(map[string]any, len(row))
		for j, v := range row {
			if tm, ok := v.(time.Time); ok {
				v = tm.Format("2006-01-02")
			}
			obj[t.Columns[j].Header] = v
		}
		doc.Rows[i] = obj
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
