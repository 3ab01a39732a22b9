// Package listview is the generic list engine: column filters, stable sort,
// pagination, row selection and the server-side pass-through mode.
package listview

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
)

// ErrInvalidQuery marks list queries naming unknown columns or carrying
// malformed filter values.
var ErrInvalidQuery = errors.New("invalid list query")

// Row is one record as the list sees it.
type Row = map[string]any

// Filter is one column predicate. Inactive filters are identity.
type Filter interface {
	// Kind returns the filter kind.
	Kind() schema.FilterKind

	// Active reports whether the filter constrains anything.
	Active() bool

	// Match reports whether row passes, reading the column at key.
	Match(row Row, key string) bool
}

// TextFilter keeps rows whose value contains Value, ignoring case and
// diacritics.
type TextFilter struct {
	Value string `json:"value"`
}

func (f TextFilter) Kind() schema.FilterKind { return schema.FilterText }
func (f TextFilter) Active() bool            { return strings.TrimSpace(f.Value) != "" }

func (f TextFilter) Match(row Row, key string) bool {
	v, ok := row[key]
	if !ok || v == nil {
		return false
	}
	return search.Default.Match(search.Stringify(v), search.Token{Type: search.TokenText, Value: strings.TrimSpace(f.Value)})
}

// RangeFilter keeps rows whose numeric value lies within inclusive bounds.
type RangeFilter struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (f RangeFilter) Kind() schema.FilterKind { return schema.FilterRange }
func (f RangeFilter) Active() bool            { return f.Min != nil || f.Max != nil }

func (f RangeFilter) Match(row Row, key string) bool {
	n, ok := toNumber(row[key])
	if !ok {
		return false
	}
	if f.Min != nil && n < *f.Min {
		return false
	}
	if f.Max != nil && n > *f.Max {
		return false
	}
	return true
}

// MultiSelectFilter keeps rows whose value is one of Values. Array cells
// match when any element is selected.
type MultiSelectFilter struct {
	Values []string `json:"values"`
}

func (f MultiSelectFilter) Kind() schema.FilterKind { return schema.FilterMultiSelect }
func (f MultiSelectFilter) Active() bool            { return len(f.Values) > 0 }

func (f MultiSelectFilter) Match(row Row, key string) bool {
	v := row[key]
	switch xs := v.(type) {
	case []any:
		for _, x := range xs {
			if f.has(search.Stringify(x)) {
				return true
			}
		}
		return false
	case []string:
		for _, x := range xs {
			if f.has(x) {
				return true
			}
		}
		return false
	case nil:
		return false
	default:
		return f.has(search.Stringify(v))
	}
}

func (f MultiSelectFilter) has(s string) bool {
	for _, v := range f.Values {
		if v == s {
			return true
		}
	}
	return false
}

// DateRangeFilter keeps rows whose date falls within inclusive bounds,
// compared by calendar day.
type DateRangeFilter struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

func (f DateRangeFilter) Kind() schema.FilterKind { return schema.FilterDateRange }
func (f DateRangeFilter) Active() bool            { return f.From != nil || f.To != nil }

func (f DateRangeFilter) Match(row Row, key string) bool {
	t, ok := ParseDate(row[key])
	if !ok {
		return false
	}
	d := day(t)
	if f.From != nil && d.Before(day(*f.From)) {
		return false
	}
	if f.To != nil && d.After(day(*f.To)) {
		return false
	}
	return true
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// dateLayouts are the date encodings accepted in cells and filter bounds.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseDate reads a time.Time or a date string in ISO or dd/mm/yyyy form.
func ParseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func toNumber(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	n, err := schema.ToFloat64(v)
	return n, err == nil
}

// Criteria is the full client-side filter state: column filters keyed by
// record key plus free-text search.
type Criteria struct {
	Filters      map[string]Filter
	Search       string
	SearchFields []string
}

// ApplyFilters returns the rows passing every active filter and the search
// query. Input rows are never mutated. Applying the same criteria twice
// yields the same rows.
func ApplyFilters(rows []Row, c Criteria) []Row {
	tokens := search.Parse(c.Search)
	out := make([]Row, 0, len(rows))

	for _, row := range rows {
		if !matchAll(row, c.Filters) {
			continue
		}
		if len(tokens) > 0 && !search.Default.EvaluateTokens(tokens, row, c.SearchFields) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matchAll(row Row, filters map[string]Filter) bool {
	for key, f := range filters {
		if f == nil || !f.Active() {
			continue
		}
		if !f.Match(row, key) {
			return false
		}
	}
	return true
}

// DecodeFilter builds a filter of kind from a loosely typed value, as found
// in URL JSON or session state. A value that already is a Filter is
// returned unchanged.
func DecodeFilter(kind schema.FilterKind, raw any) (Filter, error) {
	if f, ok := raw.(Filter); ok {
		return f, nil
	}
	if raw == nil {
		return nil, nil
	}

	switch kind {
	case schema.FilterText, "":
		return TextFilter{Value: search.Stringify(raw)}, nil

	case schema.FilterRange:
		lo, hi, err := bounds(raw, "min", "max")
		if err != nil {
			return nil, err
		}
		var f RangeFilter
		if lo != nil {
			n, ok := toNumber(lo)
			if !ok {
				return nil, fmt.Errorf("range min %v is not a number", lo)
			}
			f.Min = &n
		}
		if hi != nil {
			n, ok := toNumber(hi)
			if !ok {
				return nil, fmt.Errorf("range max %v is not a number", hi)
			}
			f.Max = &n
		}
		return f, nil

	case schema.FilterMultiSelect:
		switch xs := raw.(type) {
		case []string:
			return MultiSelectFilter{Values: xs}, nil
		case []any:
			vals := make([]string, 0, len(xs))
			for _, x := range xs {
				vals = append(vals, search.Stringify(x))
			}
			return MultiSelectFilter{Values: vals}, nil
		default:
			return MultiSelectFilter{Values: []string{search.Stringify(raw)}}, nil
		}

	case schema.FilterDateRange:
		lo, hi, err := bounds(raw, "from", "to")
		if err != nil {
			return nil, err
		}
		var f DateRangeFilter
		if lo != nil && lo != "" {
			t, ok := ParseDate(lo)
			if !ok {
				return nil, fmt.Errorf("date %v is not a date", lo)
			}
			f.From = &t
		}
		if hi != nil && hi != "" {
			t, ok := ParseDate(hi)
			if !ok {
				return nil, fmt.Errorf("date %v is not a date", hi)
			}
			f.To = &t
		}
		return f, nil

	case schema.FilterExpr:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expression filter must be a string, got %T", raw)
		}
		f := ExprFilter{Expr: s}
		if _, err := f.program(); err != nil {
			return nil, err
		}
		return f, nil

	default:
		return nil, fmt.Errorf("unknown filter kind %q", kind)
	}
}

// bounds reads a {lo, hi} object or a [lo, hi] pair.
func bounds(raw any, loKey, hiKey string) (any, any, error) {
	switch x := raw.(type) {
	case map[string]any:
		return x[loKey], x[hiKey], nil
	case []any:
		if len(x) != 2 {
			return nil, nil, fmt.Errorf("expected [%s, %s], got %d values", loKey, hiKey, len(x))
		}
		return x[0], x[1], nil
	case json.RawMessage:
		var v any
		if err := json.Unmarshal(x, &v); err != nil {
			return nil, nil, err
		}
		return bounds(v, loKey, hiKey)
	default:
		return nil, nil, fmt.Errorf("expected {%s, %s}, got %T", loKey, hiKey, raw)
	}
}

// DecodeFilters maps column-id keyed raw values to record-key keyed filters.
// Unknown column ids are rejected.
func DecodeFilters(cols []schema.Column, raw map[string]any) (map[string]Filter, error) {
	out := make(map[string]Filter, len(raw))
	for id, v := range raw {
		col, ok := findColumn(cols, id)
		if !ok {
			return nil, fmt.Errorf("%w: unknown filter column %q", ErrInvalidQuery, id)
		}
		f, err := DecodeFilter(col.FilterKindOrDefault(), v)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %q: %v", ErrInvalidQuery, id, err)
		}
		if f != nil && f.Active() {
			out[col.Key()] = f
		}
	}
	return out, nil
}

func findColumn(cols []schema.Column, id string) (schema.Column, bool) {
	for _, c := range cols {
		if c.ID == id {
			return c, true
		}
	}
	return schema.Column{}, false
}
