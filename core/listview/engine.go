package listview

import (
	"context"
	"fmt"

	"github.com/artpar/erpkit/core/schema"
)

// Source loads every row of a module for client-side processing.
type Source interface {
	FetchAll(ctx context.Context) ([]Row, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Row, error)

// FetchAll calls f.
func (f SourceFunc) FetchAll(ctx context.Context) ([]Row, error) { return f(ctx) }

// ServerQuery is what a Fetcher receives in server-side mode. A zero
// PageSize asks for every matching row.
type ServerQuery struct {
	Page     int
	PageSize int
	Search   string
	Filters  map[string]Filter
	Sort     *Sort
}

// Fetcher runs list queries on the server. Paginated is used when there is
// no search term, Search otherwise. Both return one page and the total.
type Fetcher interface {
	Paginated(ctx context.Context, q ServerQuery) ([]Row, int, error)
	Search(ctx context.Context, q ServerQuery) ([]Row, int, error)
}

// Engine answers list requests for one module's columns.
type Engine struct {
	columns      []schema.Column
	searchFields []string
	source       Source
	fetcher      Fetcher
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource sets the client-side data source.
func WithSource(s Source) Option { return func(e *Engine) { e.source = s } }

// WithFetcher switches the engine to server-side mode.
func WithFetcher(f Fetcher) Option { return func(e *Engine) { e.fetcher = f } }

// NewEngine creates an engine.
func NewEngine(columns []schema.Column, searchFields []string, opts ...Option) *Engine {
	e := &Engine{columns: columns, searchFields: searchFields}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ServerSide reports whether queries are delegated to a Fetcher.
func (e *Engine) ServerSide() bool { return e.fetcher != nil }

// Columns returns the engine's columns.
func (e *Engine) Columns() []schema.Column { return e.columns }

// Query answers req.
func (e *Engine) Query(ctx context.Context, req Request) (Page, error) {
	req = req.Normalize()

	filters, err := DecodeFilters(e.columns, req.Filters)
	if err != nil {
		return Page{}, err
	}
	sortBy, err := e.resolveSort(req)
	if err != nil {
		return Page{}, err
	}

	if e.fetcher != nil {
		return e.queryServer(ctx, req, filters, sortBy)
	}
	if e.source == nil {
		return Page{}, fmt.Errorf("list engine has neither source nor fetcher")
	}

	rows, err := e.source.FetchAll(ctx)
	if err != nil {
		return Page{}, err
	}
	return e.Process(rows, req.Search, filters, sortBy, req.Page, req.PageSize), nil
}

// Process runs filter, sort and paginate over rows already in memory.
func (e *Engine) Process(rows []Row, query string, filters map[string]Filter, sortBy *Sort, page, size int) Page {
	rows = ApplyFilters(rows, Criteria{Filters: filters, Search: query, SearchFields: e.searchFields})
	if sortBy != nil {
		rows = ApplySort(rows, *sortBy)
	}
	return Paginate(rows, page, size)
}

// Filtered returns every row passing req's filters and search in sort
// order, unpaginated. Exports of the filtered view use it.
func (e *Engine) Filtered(ctx context.Context, req Request) ([]Row, error) {
	req = req.Normalize()
	filters, err := DecodeFilters(e.columns, req.Filters)
	if err != nil {
		return nil, err
	}
	sortBy, err := e.resolveSort(req)
	if err != nil {
		return nil, err
	}

	if e.fetcher != nil {
		q := ServerQuery{Page: 1, PageSize: 0, Search: req.Search, Filters: filters, Sort: sortBy}
		fetch := e.fetcher.Paginated
		if req.IsSearch() {
			fetch = e.fetcher.Search
		}
		rows, _, err := fetch(ctx, q)
		return rows, err
	}
	if e.source == nil {
		return nil, fmt.Errorf("list engine has neither source nor fetcher")
	}
	rows, err := e.source.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	rows = ApplyFilters(rows, Criteria{Filters: filters, Search: req.Search, SearchFields: e.searchFields})
	if sortBy != nil {
		rows = ApplySort(rows, *sortBy)
	}
	return rows, nil
}

func (e *Engine) queryServer(ctx context.Context, req Request, filters map[string]Filter, sortBy *Sort) (Page, error) {
	q := ServerQuery{
		Page:     req.Page,
		PageSize: req.PageSize,
		Search:   req.Search,
		Filters:  filters,
		Sort:     sortBy,
	}

	fetch := e.fetcher.Paginated
	if req.IsSearch() {
		fetch = e.fetcher.Search
	}
	rows, total, err := fetch(ctx, q)
	if err != nil {
		return Page{}, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return Page{
		Data:       rows,
		Total:      total,
		TotalPages: TotalPages(total, req.PageSize),
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, nil
}

func (e *Engine) resolveSort(req Request) (*Sort, error) {
	if req.Sort == nil || req.Sort.Column == "" {
		return nil, nil
	}
	col, ok := findColumn(e.columns, req.Sort.Column)
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort column %q", ErrInvalidQuery, req.Sort.Column)
	}
	if !col.IsSortable() {
		return nil, fmt.Errorf("%w: column %q is not sortable", ErrInvalidQuery, req.Sort.Column)
	}
	return &Sort{Key: col.Key(), Direction: req.Sort.Direction}, nil
}
