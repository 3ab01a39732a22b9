// Package convention derives defaults from minimal module definitions.
// It fills titles, accessors, labels and export ordering so consumers never
// re-implement the fallbacks.
package convention

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/artpar/erpkit/core/schema"
)

// Derived contains all derived information from a module definition.
// This is the fully-expanded form used by the engines.
type Derived struct {
	// Source is the original module definition.
	Source schema.Module

	// Table is the storage table name.
	Table string

	// Title is the module title, falling back to a humanized name.
	Title string

	// Label is the breadcrumb label.
	Label string

	// RoutePath is the normalized base path.
	RoutePath string

	// Columns are the list columns with accessor and title filled.
	Columns []schema.Column

	// ExportColumns are the exportable columns in export order.
	ExportColumns []schema.Column

	// Fields are all section fields with labels filled.
	Fields []schema.Field

	// SearchFields are the record keys free-text search reads.
	SearchFields []string

	// Storage lists the persisted columns besides the primary key.
	Storage []StorageColumn
}

// StorageColumn is one persisted column of the module table.
type StorageColumn struct {
	Name    string
	SQLType string

	// Type is the form field type, empty for list-only columns.
	Type schema.FieldType
}

// Derive expands a minimal module definition into a fully-derived form.
func Derive(mod schema.Module) Derived {
	d := Derived{
		Source:    mod,
		Table:     mod.Table,
		Title:     mod.Title,
		RoutePath: NormalizePath(mod.RoutePath),
	}
	if d.Table == "" {
		d.Table = mod.Name
	}
	if d.Title == "" {
		d.Title = TitleCase(mod.Name)
	}
	d.Label = mod.Breadcrumb.Label
	if d.Label == "" {
		d.Label = d.Title
	}

	d.Columns = deriveColumns(mod.Columns)
	d.ExportColumns = ExportOrder(d.Columns, nil)
	d.Fields = deriveFields(mod)
	d.SearchFields = deriveSearchFields(mod, d.Columns)
	d.Storage = deriveStorage(mod, d.Columns, d.Fields)

	// Source carries the filled columns too, so engines fed with
	// d.Source see the same titles.
	d.Source.Columns = d.Columns
	d.Source.Table = d.Table
	d.Source.Title = d.Title
	d.Source.RoutePath = d.RoutePath

	return d
}

func deriveColumns(cols []schema.Column) []schema.Column {
	out := make([]schema.Column, 0, len(cols))
	for _, c := range cols {
		if c.Accessor == "" {
			c.Accessor = c.ID
		}
		if c.Meta.Title == "" {
			if c.Header != "" {
				c.Meta.Title = c.Header
			} else {
				c.Meta.Title = TitleCase(c.ID)
			}
		}
		out = append(out, c)
	}
	return out
}

func deriveFields(mod schema.Module) []schema.Field {
	var out []schema.Field
	for _, f := range mod.Fields() {
		if f.Label == "" {
			if col, ok := mod.Column(f.Name); ok && col.Header != "" {
				f.Label = col.Header
			} else {
				f.Label = TitleCase(f.Name)
			}
		}
		out = append(out, f)
	}
	return out
}

func deriveSearchFields(mod schema.Module, cols []schema.Column) []string {
	if len(mod.Search.Fields) > 0 {
		return append([]string(nil), mod.Search.Fields...)
	}
	var out []string
	for _, c := range cols {
		if c.ID == schema.ColumnActions || c.ID == schema.ColumnSelect {
			continue
		}
		out = append(out, c.Key())
	}
	return out
}

func deriveStorage(mod schema.Module, cols []schema.Column, fields []schema.Field) []StorageColumn {
	pk := mod.PrimaryKey()
	seen := map[string]bool{pk: true}
	var out []StorageColumn

	for _, f := range fields {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, StorageColumn{Name: f.Name, SQLType: SQLType(f.Type), Type: f.Type})
	}
	for _, c := range cols {
		key := c.Key()
		if seen[key] || c.ID == schema.ColumnActions || c.ID == schema.ColumnSelect {
			continue
		}
		seen[key] = true
		out = append(out, StorageColumn{Name: key, SQLType: "TEXT"})
	}
	if mod.Parent != nil && !seen[mod.Parent.ForeignKey] {
		out = append(out, StorageColumn{Name: mod.Parent.ForeignKey, SQLType: "INTEGER", Type: schema.FieldTypeNumber})
	}
	return out
}

// SQLType returns the SQLite column type for a field type.
func SQLType(t schema.FieldType) string {
	switch {
	case t.IsNumeric():
		return "REAL"
	case t == schema.FieldTypeCheckbox:
		return "INTEGER"
	default:
		return "TEXT" // multiselect stored as JSON
	}
}

// ExportOrder returns the exportable columns sorted by an explicit order
// map, then Meta.Order, then declaration order. Action and selection
// columns are dropped, as are hidden ones.
func ExportOrder(cols []schema.Column, order map[string]int) []schema.Column {
	type ranked struct {
		col  schema.Column
		rank int
		pos  int
	}
	var rs []ranked
	for i, c := range cols {
		if c.ID == schema.ColumnActions || c.ID == schema.ColumnSelect || c.Meta.Hidden {
			continue
		}
		rank := unorderedRank
		if r, ok := order[c.ID]; ok {
			rank = r
		} else if c.Meta.Order != nil {
			rank = *c.Meta.Order
		}
		rs = append(rs, ranked{col: c, rank: rank, pos: i})
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].rank != rs[j].rank {
			return rs[i].rank < rs[j].rank
		}
		return rs[i].pos < rs[j].pos
	})
	out := make([]schema.Column, len(rs))
	for i, r := range rs {
		out[i] = r.col
	}
	return out
}

const unorderedRank = 999

// TitleCase turns a snake_case id into a title: "ma_nhan_vien" → "Ma Nhan Vien".
func TitleCase(id string) string {
	parts := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' })
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + strings.ToLower(p[size:])
	}
	return strings.Join(parts, " ")
}

// NormalizePath returns p with a single leading slash and no trailing slash.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = "/" + strings.Trim(p, "/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

// Segments splits a normalized path into its non-empty segments.
func Segments(p string) []string {
	trimmed := strings.Trim(NormalizePath(p), "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
