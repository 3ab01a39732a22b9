// Package schema defines the core types for declarative module definitions.
package schema

// Module is the root definition for one CRUD module.
type Module struct {
	// Name is the unique key of the module (e.g., "nhan_su").
	Name string `yaml:"module" json:"module"`

	// Title is the display title used in headings and breadcrumbs.
	Title string `yaml:"title" json:"title"`

	// RoutePath is the absolute base path of the list view.
	RoutePath string `yaml:"route_path" json:"route_path"`

	// RoutePattern is an optional router pattern (e.g., "/nhan-su/*").
	RoutePattern string `yaml:"route_pattern,omitempty" json:"route_pattern,omitempty"`

	// Table is the backing table name. Defaults to Name.
	Table string `yaml:"table,omitempty" json:"table,omitempty"`

	// IDField is the primary key column. Defaults to "id".
	IDField string `yaml:"id_field,omitempty" json:"id_field,omitempty"`

	// Parent links a child module to the module whose detail page embeds it.
	Parent *ParentRef `yaml:"parent,omitempty" json:"parent,omitempty"`

	Breadcrumb Breadcrumb `yaml:"breadcrumb,omitempty" json:"breadcrumb,omitempty"`

	// Columns declares the list view, export and filter chips.
	Columns []Column `yaml:"columns" json:"columns"`

	// Sections declares the detail and form views.
	Sections []Section `yaml:"sections,omitempty" json:"sections,omitempty"`

	Search SearchConfig `yaml:"search,omitempty" json:"search,omitempty"`

	Meta ModuleMeta `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// ParentRef names the owning module and the foreign key pointing to it.
type ParentRef struct {
	Module     string `yaml:"module" json:"module"`
	ForeignKey string `yaml:"foreign_key" json:"foreign_key"`
}

// Breadcrumb overrides how the module renders in the breadcrumb trail.
type Breadcrumb struct {
	Label        string   `yaml:"label,omitempty" json:"label,omitempty"`
	ParentLabel  string   `yaml:"parent_label,omitempty" json:"parent_label,omitempty"`
	SkipSegments []string `yaml:"skip_segments,omitempty" json:"skip_segments,omitempty"`
}

// SearchConfig lists the fields free-text search runs against.
// Empty means every column.
type SearchConfig struct {
	Fields []string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// ModuleMeta contains optional module metadata.
type ModuleMeta struct {
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Group is the menu group the module is listed under.
	Group string `yaml:"group,omitempty" json:"group,omitempty"`
}

// Column returns the column with the given id.
func (m Module) Column(id string) (Column, bool) {
	for _, c := range m.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Fields returns every field across all sections in declaration order.
func (m Module) Fields() []Field {
	var out []Field
	for _, s := range m.Sections {
		out = append(out, s.Fields...)
	}
	return out
}

// Field returns the field with the given name.
func (m Module) Field(name string) (Field, bool) {
	for _, s := range m.Sections {
		for _, f := range s.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return Field{}, false
}

// PrimaryKey returns the id column name.
func (m Module) PrimaryKey() string {
	if m.IDField == "" {
		return "id"
	}
	return m.IDField
}
