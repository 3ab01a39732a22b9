package schema

// Column declares one list column. The same declaration drives list
// rendering, filtering, export and filter-chip labels.
type Column struct {
	ID     string `yaml:"id" json:"id"`
	Header string `yaml:"header,omitempty" json:"header,omitempty"`

	// Accessor is the record key the cell reads. Defaults to ID.
	Accessor string `yaml:"accessor,omitempty" json:"accessor,omitempty"`

	// Sortable defaults to true.
	Sortable *bool `yaml:"sortable,omitempty" json:"sortable,omitempty"`

	Filterable bool       `yaml:"filterable,omitempty" json:"filterable,omitempty"`
	Filter     FilterKind `yaml:"filter,omitempty" json:"filter,omitempty"`

	Meta ColumnMeta `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// ColumnMeta carries display hints.
type ColumnMeta struct {
	Title       string                `yaml:"title,omitempty" json:"title,omitempty"`
	EnumConfig  map[string]EnumOption `yaml:"enum_config,omitempty" json:"enum_config,omitempty"`
	StickyLeft  bool                  `yaml:"sticky_left,omitempty" json:"sticky_left,omitempty"`
	StickyRight bool                  `yaml:"sticky_right,omitempty" json:"sticky_right,omitempty"`

	// Order positions the column in exports. Unset columns sort last.
	Order *int `yaml:"order,omitempty" json:"order,omitempty"`

	// Format forces an export number format instead of detecting one.
	Format ColumnFormat `yaml:"format,omitempty" json:"format,omitempty"`

	Hidden bool `yaml:"hidden,omitempty" json:"hidden,omitempty"`
}

// EnumOption is the label and badge color of one enum value.
type EnumOption struct {
	Label string `yaml:"label" json:"label"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"`
}

// FilterKind selects the predicate a column filter applies.
type FilterKind string

const (
	FilterText        FilterKind = "text"
	FilterRange       FilterKind = "range"
	FilterMultiSelect FilterKind = "multi_select"
	FilterDateRange   FilterKind = "date_range"
	FilterExpr        FilterKind = "expr"
)

// ColumnFormat is the cell format used by exports.
type ColumnFormat string

const (
	FormatAuto       ColumnFormat = ""
	FormatNumber     ColumnFormat = "number"
	FormatPercentage ColumnFormat = "percentage"
	FormatCurrency   ColumnFormat = "currency"
	FormatDate       ColumnFormat = "date"
	FormatText       ColumnFormat = "text"
)

// Reserved column ids that never reach exports.
const (
	ColumnActions = "actions"
	ColumnSelect  = "select"
)

// IsSortable returns whether the column can be sorted.
func (c Column) IsSortable() bool {
	if c.Sortable != nil {
		return *c.Sortable
	}
	return true
}

// Key returns the record key the column reads.
func (c Column) Key() string {
	if c.Accessor != "" {
		return c.Accessor
	}
	return c.ID
}

// Title returns the human label: meta title, then header, then the id.
func (c Column) Title() string {
	if c.Meta.Title != "" {
		return c.Meta.Title
	}
	if c.Header != "" {
		return c.Header
	}
	return c.ID
}

// EnumLabel maps a raw value to its enum label, or returns it unchanged.
func (c Column) EnumLabel(value string) string {
	if opt, ok := c.Meta.EnumConfig[value]; ok && opt.Label != "" {
		return opt.Label
	}
	return value
}

// FilterKindOrDefault returns the declared filter kind, text by default.
func (c Column) FilterKindOrDefault() FilterKind {
	if c.Filter != "" {
		return c.Filter
	}
	if len(c.Meta.EnumConfig) > 0 {
		return FilterMultiSelect
	}
	return FilterText
}
