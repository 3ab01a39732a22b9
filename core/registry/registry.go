// Package registry holds the immutable table of modules built at startup.
// It answers name and route lookups and renders breadcrumb trails.
package registry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/schema"
)

// ErrUnknownModule is returned for names that were never registered.
var ErrUnknownModule = errors.New("unknown module")

// Breadcrumb labels.
const (
	HomeLabel   = "Trang chủ"
	CreateLabel = "Thêm mới"
	EditLabel   = "Chỉnh sửa"
)

// Registry is a snapshot of registered modules. It is never mutated after
// New returns, so lookups need no locking.
type Registry struct {
	order    []string
	modules  map[string]convention.Derived
	routes   map[string]string
	resolver *navigation.Resolver
}

// New builds a registry from an ordered descriptor list.
// Returns a ConflictError when names or route paths collide.
func New(resolver *navigation.Resolver, mods ...schema.Module) (*Registry, error) {
	if resolver == nil {
		resolver = navigation.NewResolver(navigation.DefaultTokens())
	}
	r := &Registry{
		modules:  make(map[string]convention.Derived, len(mods)),
		routes:   make(map[string]string, len(mods)),
		resolver: resolver,
	}

	var conflicts []Conflict
	for _, mod := range mods {
		d := convention.Derive(mod)

		if _, exists := r.modules[mod.Name]; exists {
			conflicts = append(conflicts, Conflict{Kind: "name", Key: mod.Name, Modules: []string{mod.Name, mod.Name}})
			continue
		}
		if owner, exists := r.routes[d.RoutePath]; exists {
			conflicts = append(conflicts, Conflict{Kind: "route", Key: d.RoutePath, Modules: []string{owner, mod.Name}})
			continue
		}

		r.order = append(r.order, mod.Name)
		r.modules[mod.Name] = d
		r.routes[d.RoutePath] = mod.Name
	}

	for _, name := range r.order {
		p := r.modules[name].Source.Parent
		if p != nil {
			if _, ok := r.modules[p.Module]; !ok {
				conflicts = append(conflicts, Conflict{Kind: "parent", Key: p.Module, Modules: []string{name}})
			}
		}
	}

	if len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}
	return r, nil
}

// Get returns a registered module by name.
func (r *Registry) Get(name string) (convention.Derived, bool) {
	mod, ok := r.modules[name]
	return mod, ok
}

// Lookup is Get returning ErrUnknownModule.
func (r *Registry) Lookup(name string) (convention.Derived, error) {
	mod, ok := r.modules[name]
	if !ok {
		return convention.Derived{}, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	return mod, nil
}

// List returns all modules in registration order.
func (r *Registry) List() []convention.Derived {
	out := make([]convention.Derived, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.modules[name])
	}
	return out
}

// Len returns the number of modules.
func (r *Registry) Len() int { return len(r.order) }

// Title returns the module title, or the name itself when unknown.
func (r *Registry) Title(name string) string {
	if mod, ok := r.modules[name]; ok {
		return mod.Title
	}
	return name
}

// Children returns the modules embedded under parent, in registration order.
func (r *Registry) Children(parent string) []convention.Derived {
	var out []convention.Derived
	for _, name := range r.order {
		mod := r.modules[name]
		if mod.Source.Parent != nil && mod.Source.Parent.Module == parent {
			out = append(out, mod)
		}
	}
	return out
}

// Resolver returns the navigation resolver the registry was built with.
func (r *Registry) Resolver() *navigation.Resolver { return r.resolver }

// ByPath finds the module owning pathname by the longest route prefix on a
// segment boundary.
func (r *Registry) ByPath(pathname string) (convention.Derived, bool) {
	path := convention.NormalizePath(pathname)
	for {
		if name, ok := r.routes[path]; ok {
			return r.modules[name], true
		}
		if path == "/" {
			return convention.Derived{}, false
		}
		i := strings.LastIndex(path, "/")
		if i <= 0 {
			path = "/"
		} else {
			path = path[:i]
		}
	}
}

// Crumb is one breadcrumb entry. Path is empty for unlinked crumbs.
type Crumb struct {
	Label   string `json:"label"`
	Path    string `json:"path,omitempty"`
	Current bool   `json:"current,omitempty"`
}

// Breadcrumbs renders the trail for pathname.
func (r *Registry) Breadcrumbs(pathname string) []Crumb {
	crumbs := []Crumb{{Label: HomeLabel, Path: "/"}}
	mod, ok := r.ByPath(pathname)
	if !ok {
		crumbs = append(crumbs, r.genericCrumbs(convention.Segments(pathname), "", nil)...)
		return markCurrent(crumbs)
	}

	skip := make(map[string]bool, len(mod.Source.Breadcrumb.SkipSegments))
	for _, s := range mod.Source.Breadcrumb.SkipSegments {
		skip[s] = true
	}

	base := convention.Segments(mod.RoutePath)
	if len(base) > 1 {
		if parent := mod.Source.Breadcrumb.ParentLabel; parent != "" {
			crumbs = append(crumbs, Crumb{Label: parent})
		} else {
			crumbs = append(crumbs, r.genericCrumbs(base[:len(base)-1], "", skip)...)
		}
	}
	crumbs = append(crumbs, Crumb{Label: mod.Label, Path: mod.RoutePath})

	rest, _ := navigation.Rest(pathname, mod.RoutePath)
	tokens := r.resolver.Tokens()
	path := mod.RoutePath
	for _, seg := range rest {
		path = strings.TrimSuffix(path, "/") + "/" + seg
		if skip[seg] {
			continue
		}
		var label string
		switch {
		case tokens.IsCreate(seg):
			label = CreateLabel
		case tokens.IsEdit(seg):
			label = EditLabel
		default:
			if id, ok := navigation.ParseID(seg); ok {
				label = "#" + strconv.FormatInt(id, 10)
			} else {
				label = convention.TitleCase(seg)
			}
		}
		crumbs = append(crumbs, Crumb{Label: label, Path: path})
	}

	return markCurrent(crumbs)
}

// genericCrumbs labels plain segments, preferring registered module labels
// for prefixes that are module routes.
func (r *Registry) genericCrumbs(segs []string, prefix string, skip map[string]bool) []Crumb {
	var out []Crumb
	path := prefix
	for _, seg := range segs {
		path += "/" + seg
		if skip[seg] {
			continue
		}
		label := convention.TitleCase(seg)
		if name, ok := r.routes[path]; ok {
			label = r.modules[name].Label
		}
		out = append(out, Crumb{Label: label, Path: path})
	}
	return out
}

func markCurrent(crumbs []Crumb) []Crumb {
	if n := len(crumbs); n > 0 {
		crumbs[n-1].Current = true
	}
	return crumbs
}

// Conflict describes one collision found while building the registry.
type Conflict struct {
	Kind    string
	Key     string
	Modules []string
}

func (c Conflict) Error() string {
	switch c.Kind {
	case "parent":
		return fmt.Sprintf("module %q: parent %q is not registered", c.Modules[0], c.Key)
	case "name":
		return fmt.Sprintf("module %q already registered", c.Key)
	default:
		return fmt.Sprintf("%s %q claimed by %s", c.Kind, c.Key, strings.Join(c.Modules, " and "))
	}
}

// ConflictError represents one or more registration conflicts.
type ConflictError struct {
	Conflicts []Conflict
}

// Error returns the conflict error message.
func (e *ConflictError) Error() string {
	var msgs []string
	for _, c := range e.Conflicts {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("registry conflicts detected:\n  - %s", strings.Join(msgs, "\n  - "))
}

// HasConflicts returns true if there are any conflicts.
func (e *ConflictError) HasConflicts() bool {
	return len(e.Conflicts) > 0
}
