package crud

import (
	"context"
	"strings"

	"github.com/artpar/erpkit/core/filterstate"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
	"github.com/artpar/erpkit/core/storage"
)

// Fetcher answers server-side list queries from the store. Filters and
// searches the store can express run as SQL; anything else (expression
// filters, search operators, date ranges) loads the module and runs the
// in-memory pipeline.
type Fetcher struct {
	svc *Service
}

var _ listview.Fetcher = Fetcher{}

// NewFetcher returns a Fetcher over svc.
func NewFetcher(svc *Service) Fetcher { return Fetcher{svc: svc} }

// Paginated implements listview.Fetcher.
func (f Fetcher) Paginated(ctx context.Context, q listview.ServerQuery) ([]listview.Row, int, error) {
	return f.query(ctx, q)
}

// Search implements listview.Fetcher.
func (f Fetcher) Search(ctx context.Context, q listview.ServerQuery) ([]listview.Row, int, error) {
	return f.query(ctx, q)
}

func (f Fetcher) query(ctx context.Context, q listview.ServerQuery) ([]listview.Row, int, error) {
	opts, ok := f.pushdown(q)
	if !ok {
		return f.inMemory(ctx, q)
	}
	rows, total, err := f.svc.store.List(ctx, f.svc.Name(), opts)
	if err != nil {
		return nil, 0, err
	}
	return rows, int(total), nil
}

func (f Fetcher) inMemory(ctx context.Context, q listview.ServerQuery) ([]listview.Row, int, error) {
	rows, err := f.svc.FetchAll(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows = listview.ApplyFilters(rows, listview.Criteria{
		Filters:      q.Filters,
		Search:       q.Search,
		SearchFields: f.svc.mod.SearchFields,
	})
	if q.Sort != nil {
		rows = listview.ApplySort(rows, *q.Sort)
	}
	if q.PageSize == 0 {
		return rows, len(rows), nil
	}
	page := listview.Paginate(rows, q.Page, q.PageSize)
	return page.Data, page.Total, nil
}

// pushdown translates q into store options, reporting false when some part
// has no SQL equivalent.
func (f Fetcher) pushdown(q listview.ServerQuery) (storage.ListOptions, bool) {
	opts := storage.ListOptions{SearchFields: f.svc.mod.SearchFields}

	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		opts.Limit = q.PageSize
		opts.Offset = (page - 1) * q.PageSize
	}
	if q.Sort != nil {
		opts.OrderBy = q.Sort.Key
		opts.OrderDesc = q.Sort.Direction == filterstate.Desc
	}

	term, ok := plainTerm(q.Search)
	if !ok {
		return opts, false
	}
	opts.Search = term

	for key, flt := range q.Filters {
		if flt == nil || !flt.Active() {
			continue
		}
		col, known := f.storageColumn(key)
		if !known {
			return opts, false
		}
		conds, ok := conditions(key, col, flt)
		if !ok {
			return opts, false
		}
		opts.Where = append(opts.Where, conds...)
	}
	return opts, true
}

func (f Fetcher) storageColumn(key string) (schema.FieldType, bool) {
	for _, c := range f.svc.mod.Storage {
		if c.Name == key {
			return c.Type, true
		}
	}
	return "", false
}

// plainTerm accepts an empty search or a single bare word, the only
// queries whose SQL and in-memory meanings agree.
func plainTerm(query string) (string, bool) {
	tokens := search.Parse(query)
	switch {
	case len(tokens) == 0:
		return "", true
	case len(tokens) > 1:
		return "", false
	}
	tok := tokens[0]
	if tok.Type != search.TokenText || strings.ContainsAny(tok.Value, " \t") {
		return "", false
	}
	return tok.Value, true
}

func conditions(key string, typ schema.FieldType, flt listview.Filter) ([]storage.Condition, bool) {
	switch v := flt.(type) {
	case listview.TextFilter:
		return []storage.Condition{{Field: key, Op: storage.OpContains, Value: strings.TrimSpace(v.Value)}}, true

	case listview.RangeFilter:
		if !typ.IsNumeric() {
			return nil, false
		}
		var out []storage.Condition
		if v.Min != nil {
			out = append(out, storage.Condition{Field: key, Op: storage.OpGte, Value: *v.Min})
		}
		if v.Max != nil {
			out = append(out, storage.Condition{Field: key, Op: storage.OpLte, Value: *v.Max})
		}
		return out, true

	case listview.MultiSelectFilter:
		// Numbers and multiselect arrays are stored in forms that do not
		// compare equal to their option strings.
		if typ.IsNumeric() || typ == schema.FieldTypeMulti || typ == schema.FieldTypeCheckbox {
			return nil, false
		}
		return []storage.Condition{{Field: key, Op: storage.OpIn, Value: append([]string(nil), v.Values...)}}, true
	}
	return nil, false
}
