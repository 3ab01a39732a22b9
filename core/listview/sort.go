package listview

import (
	"sort"
	"time"

	"github.com/artpar/erpkit/core/filterstate"
	"github.com/artpar/erpkit/core/search"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders rows by one record key.
type Sort struct {
	Key       string
	Direction filterstate.Direction
}

// ApplySort returns a stably sorted copy of rows. Missing and nil values
// sort last in both directions. Numbers compare numerically, times
// chronologically and strings with Vietnamese collation ignoring case.
func ApplySort(rows []Row, s Sort) []Row {
	out := append([]Row(nil), rows...)
	if s.Key == "" {
		return out
	}

	col := collate.New(language.Vietnamese, collate.IgnoreCase)
	desc := s.Direction == filterstate.Desc

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i][s.Key], out[j][s.Key]
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		}
		c := compare(col, a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func compare(col *collate.Collator, a, b any) int {
	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return cmp(x, y)
		}
	}
	if x, ok := a.(time.Time); ok {
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	}
	return col.CompareString(search.Stringify(a), search.Stringify(b))
}

// numeric accepts Go number types only; numeric strings compare as text.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cmp(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
