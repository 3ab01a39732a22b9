package listview

// Page sizes.
const (
	DefaultPageSize = 50
	MinPageSize     = 10
)

// Page is one page of a list.
type Page struct {
	Data       []Row `json:"data"`
	Total      int   `json:"total"`
	TotalPages int   `json:"total_pages"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.Page > 1 }

// TotalPages returns ceil(total/size), at least 1.
func TotalPages(total, size int) int {
	if size < 1 || total <= 0 {
		return 1
	}
	return (total + size - 1) / size
}

// Paginate slices rows into a 1-indexed page. Pages below 1 read as 1, sizes
// below 1 use DefaultPageSize, pages past the end are empty.
func Paginate(rows []Row, page, size int) Page {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}

	total := len(rows)
	p := Page{
		Data:       []Row{},
		Total:      total,
		TotalPages: TotalPages(total, size),
		Page:       page,
		PageSize:   size,
	}

	start := (page - 1) * size
	if start >= total {
		return p
	}
	end := start + size
	if end > total {
		end = total
	}
	p.Data = rows[start:end]
	return p
}
