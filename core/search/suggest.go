package search

import (
	"fmt"
	"strings"
	"time"
)

const (
	minSuggestQuery    = 2
	defaultSuggestions = 5
)

// Suggestions returns up to max distinct display values from rows whose
// searched fields contain query, ignoring case and diacritics. Queries
// shorter than two characters yield nothing.
func Suggestions(rows []map[string]any, fields []string, query string, max int) []string {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minSuggestQuery {
		return nil
	}
	if max <= 0 {
		max = defaultSuggestions
	}

	needle := strings.ToLower(Fold(query))
	seen := make(map[string]bool)
	var out []string

	for _, row := range rows {
		for _, f := range fields {
			v, ok := row[f]
			if !ok || v == nil {
				continue
			}
			display := strings.TrimSpace(Stringify(v))
			if display == "" || seen[display] {
				continue
			}
			if strings.Contains(strings.ToLower(Fold(display)), needle) {
				seen[display] = true
				out = append(out, display)
				if len(out) >= max {
					return out
				}
			}
		}
	}
	return out
}

// Stringify renders a cell value as search text.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format("02/01/2006")
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}
