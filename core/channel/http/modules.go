package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/artpar/erpkit/core/convention"
	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/registry"
	"github.com/artpar/erpkit/core/schema"
	"github.com/go-chi/chi/v5"
)

type ctxKey int

const moduleKey ctxKey = iota

// moduleSummary is one entry of the module catalog.
type moduleSummary struct {
	Name        string            `json:"module"`
	Title       string            `json:"title"`
	Label       string            `json:"label"`
	RoutePath   string            `json:"route_path"`
	Parent      *schema.ParentRef `json:"parent,omitempty"`
	Group       string            `json:"group,omitempty"`
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version,omitempty"`
}

// moduleDescriptor is the full derived descriptor of a module.
type moduleDescriptor struct {
	moduleSummary
	IDField       string           `json:"id_field"`
	Columns       []schema.Column  `json:"columns"`
	ExportColumns []string         `json:"export_columns"`
	Sections      []schema.Section `json:"sections"`
	SearchFields  []string         `json:"search_fields"`
	Children      []string         `json:"children,omitempty"`
	Paths         modulePaths      `json:"paths"`
}

type modulePaths struct {
	List   string `json:"list"`
	Create string `json:"create"`
}

func summarize(mod convention.Derived) moduleSummary {
	return moduleSummary{
		Name:        mod.Source.Name,
		Title:       mod.Title,
		Label:       mod.Label,
		RoutePath:   mod.RoutePath,
		Parent:      mod.Source.Parent,
		Group:       mod.Source.Meta.Group,
		Description: mod.Source.Meta.Description,
		Version:     mod.Source.Meta.Version,
	}
}

// handleModules handles GET /api/_modules
func (c *Channel) handleModules(w http.ResponseWriter, r *http.Request) {
	mods := c.registry.List()
	summaries := make([]moduleSummary, 0, len(mods))
	for _, mod := range mods {
		summaries = append(summaries, summarize(mod))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"modules": summaries,
		"count":   len(summaries),
	})
}

// handleModule handles GET /api/_modules/{module}
func (c *Channel) handleModule(w http.ResponseWriter, r *http.Request) {
	mod, err := c.registry.Lookup(chi.URLParam(r, "module"))
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}

	exportCols := make([]string, 0, len(mod.ExportColumns))
	for _, col := range mod.ExportColumns {
		exportCols = append(exportCols, col.ID)
	}
	var children []string
	for _, child := range c.registry.Children(mod.Source.Name) {
		children = append(children, child.Source.Name)
	}
	paths := c.registry.Resolver().Paths(mod.RoutePath)

	writeJSON(w, http.StatusOK, moduleDescriptor{
		moduleSummary: summarize(mod),
		IDField:       mod.Source.PrimaryKey(),
		Columns:       mod.Columns,
		ExportColumns: exportCols,
		Sections:      mod.Source.Sections,
		SearchFields:  mod.SearchFields,
		Children:      children,
		Paths:         modulePaths{List: paths.List(), Create: paths.Create()},
	})
}

// resolveResponse is the answer of GET /api/_nav/resolve.
type resolveResponse struct {
	Module      string           `json:"module"`
	Mode        navigation.Mode  `json:"mode"`
	State       navigation.State `json:"state"`
	Redirect    string           `json:"redirect,omitempty"`
	Breadcrumbs []registry.Crumb `json:"breadcrumbs"`
}

// handleResolve handles GET /api/_nav/resolve?path=
func (c *Channel) handleResolve(w http.ResponseWriter, r *http.Request) {
	pathname := r.URL.Query().Get("path")
	if pathname == "" {
		writeError(w, fmt.Errorf("path is required"), http.StatusBadRequest)
		return
	}

	mod, ok := c.registry.ByPath(pathname)
	if !ok {
		writeError(w, fmt.Errorf("%w: no module owns %q", registry.ErrUnknownModule, pathname), http.StatusNotFound)
		return
	}

	resolver := c.registry.Resolver()
	state := resolver.Resolve(pathname, mod.RoutePath)
	redirect, _ := resolver.Paths(mod.RoutePath).Guard(state)

	writeJSON(w, http.StatusOK, resolveResponse{
		Module:      mod.Source.Name,
		Mode:        state.Mode(),
		State:       state,
		Redirect:    redirect,
		Breadcrumbs: c.registry.Breadcrumbs(pathname),
	})
}

type moduleEntry struct {
	mod convention.Derived
	svc *crud.Service
}

// moduleCtx resolves {module} once for every module route.
func (c *Channel) moduleCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "module")
		mod, err := c.registry.Lookup(name)
		if err != nil {
			writeError(w, err, http.StatusNotFound)
			return
		}
		svc, ok := c.services[name]
		if !ok {
			writeError(w, fmt.Errorf("module %q has no data source", name), http.StatusNotFound)
			return
		}
		ctx := context.WithValue(r.Context(), moduleKey, moduleEntry{mod: mod, svc: svc})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func moduleFrom(ctx context.Context) moduleEntry {
	e, _ := ctx.Value(moduleKey).(moduleEntry)
	return e
}
