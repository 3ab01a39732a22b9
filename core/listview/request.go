package listview

import (
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/artpar/erpkit/core/filterstate"
)

// Request is a list query as carried in the URL:
//
//	?page=2&pageSize=20&search=an&filters={"trang_thai":["dang_lam"]}&sort=ho_ten&order=desc
type Request struct {
	Page     int                         `json:"page"`
	PageSize int                         `json:"page_size"`
	Search   string                      `json:"search,omitempty"`
	Filters  map[string]any              `json:"filters,omitempty"`
	Sort     *filterstate.SortPreference `json:"sort,omitempty"`
}

// Query parameter names.
const (
	ParamPage     = "page"
	ParamPageSize = "pageSize"
	ParamSearch   = "search"
	ParamFilters  = "filters"
	ParamSort     = "sort"
	ParamOrder    = "order"
)

// ParseRequest reads a Request from query values and normalizes it.
func ParseRequest(q url.Values) (Request, error) {
	r := Request{
		Page:     atoiDefault(q.Get(ParamPage), 1),
		PageSize: atoiDefault(q.Get(ParamPageSize), DefaultPageSize),
		Search:   q.Get(ParamSearch),
	}

	if raw := q.Get(ParamFilters); raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Filters); err != nil {
			return Request{}, fmt.Errorf("%w: decode filters: %v", ErrInvalidQuery, err)
		}
	}

	if col := q.Get(ParamSort); col != "" {
		r.Sort = &filterstate.SortPreference{
			Column:    col,
			Direction: filterstate.ParseDirection(q.Get(ParamOrder)),
		}
	}

	return r.Normalize(), nil
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// Normalize clamps the page to at least 1 and the page size to at least
// MinPageSize. A zero page size means DefaultPageSize.
func (r Request) Normalize() Request {
	if r.Page < 1 {
		r.Page = 1
	}
	switch {
	case r.PageSize == 0:
		r.PageSize = DefaultPageSize
	case r.PageSize < MinPageSize:
		r.PageSize = MinPageSize
	}
	return r
}

// IsSearch reports whether the request carries a non-blank search term.
func (r Request) IsSearch() bool {
	return strings.TrimSpace(r.Search) != ""
}

// Follow returns r with the page reset to 1 when the search or filters
// differ from prev. Changing what is listed invalidates the page number.
func (r Request) Follow(prev Request) Request {
	if strings.TrimSpace(r.Search) != strings.TrimSpace(prev.Search) || !reflect.DeepEqual(r.Filters, prev.Filters) {
		r.Page = 1
	}
	return r
}

// Values encodes the request as query values. Defaults are omitted.
func (r Request) Values() url.Values {
	q := url.Values{}
	if r.Page > 1 {
		q.Set(ParamPage, strconv.Itoa(r.Page))
	}
	if r.PageSize != 0 && r.PageSize != DefaultPageSize {
		q.Set(ParamPageSize, strconv.Itoa(r.PageSize))
	}
	if s := strings.TrimSpace(r.Search); s != "" {
		q.Set(ParamSearch, s)
	}
	if len(r.Filters) > 0 {
		if b, err := json.Marshal(r.Filters); err == nil {
			q.Set(ParamFilters, string(b))
		}
	}
	if r.Sort != nil && r.Sort.Column != "" {
		q.Set(ParamSort, r.Sort.Column)
		q.Set(ParamOrder, string(r.Sort.Direction))
	}
	return q
}

// FromState builds a request from stored session state.
func FromState(st filterstate.ModuleState, page, pageSize int) Request {
	return Request{
		Page:     page,
		PageSize: pageSize,
		Search:   st.SearchQuery,
		Filters:  st.Filters,
		Sort:     st.Sort,
	}.Normalize()
}
