package listview

import (
	"sort"
	"strings"

	"github.com/artpar/erpkit/core/schema"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Chip is the label of one active filter, shown above the list.
type Chip struct {
	Column string `json:"column"`
	Label  string `json:"label"`
	Value  string `json:"value"`
}

// SearchChipColumn is the Chip.Column of the free-text search chip.
const SearchChipColumn = "_search"

// FilterChips describes the active filters in column order, with the search
// chip last. Enum values render with their labels.
func FilterChips(cols []schema.Column, filters map[string]Filter, query string) []Chip {
	p := message.NewPrinter(language.Vietnamese)
	var chips []Chip

	for _, col := range cols {
		f, ok := filters[col.Key()]
		if !ok || f == nil || !f.Active() {
			continue
		}
		chips = append(chips, Chip{Column: col.ID, Label: col.Title(), Value: describe(p, col, f)})
	}

	// Filters on keys without a declared column still get a chip.
	var extra []string
	for key, f := range filters {
		if f == nil || !f.Active() {
			continue
		}
		if !hasKey(cols, key) {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		chips = append(chips, Chip{Column: key, Label: key, Value: describe(p, schema.Column{ID: key}, filters[key])})
	}

	if q := strings.TrimSpace(query); q != "" {
		chips = append(chips, Chip{Column: SearchChipColumn, Label: "Tìm kiếm", Value: q})
	}
	return chips
}

func describe(p *message.Printer, col schema.Column, f Filter) string {
	switch x := f.(type) {
	case TextFilter:
		return strings.TrimSpace(x.Value)
	case RangeFilter:
		switch {
		case x.Min != nil && x.Max != nil:
			return p.Sprintf("%v - %v", *x.Min, *x.Max)
		case x.Min != nil:
			return p.Sprintf("≥ %v", *x.Min)
		default:
			return p.Sprintf("≤ %v", *x.Max)
		}
	case MultiSelectFilter:
		labels := make([]string, len(x.Values))
		for i, v := range x.Values {
			labels[i] = col.EnumLabel(v)
		}
		return strings.Join(labels, ", ")
	case DateRangeFilter:
		const layout = "02/01/2006"
		switch {
		case x.From != nil && x.To != nil:
			return x.From.Format(layout) + " - " + x.To.Format(layout)
		case x.From != nil:
			return "từ " + x.From.Format(layout)
		default:
			return "đến " + x.To.Format(layout)
		}
	case ExprFilter:
		return x.Expr
	default:
		return ""
	}
}

func hasKey(cols []schema.Column, key string) bool {
	for _, c := range cols {
		if c.Key() == key {
			return true
		}
	}
	return false
}
