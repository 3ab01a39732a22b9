package http

import (
	"fmt"
	"net/http"

	"github.com/artpar/erpkit/core/embedded"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/navigation"
	"github.com/go-chi/chi/v5"
)

// childSource resolves {child} under the record {id} of the current
// module. The child module must name the current module as its parent.
func (c *Channel) childSource(w http.ResponseWriter, r *http.Request) (*embedded.ChildSource, bool) {
	e := moduleFrom(r.Context())
	id, ok := navigation.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errBadID, http.StatusBadRequest)
		return nil, false
	}

	name := chi.URLParam(r, "child")
	svc, ok := c.services[name]
	if !ok {
		writeError(w, fmt.Errorf("unknown child module %q", name), http.StatusNotFound)
		return nil, false
	}
	if p := svc.Module().Source.Parent; p == nil || p.Module != e.mod.Source.Name {
		writeError(w, fmt.Errorf("module %q is not a child of %q", name, e.mod.Source.Name), http.StatusNotFound)
		return nil, false
	}

	if _, err := e.svc.Get(r.Context(), id); err != nil {
		c.writeMutationError(w, err)
		return nil, false
	}
	return embedded.NewChildSource(svc, id), true
}

// handleChildren handles GET /api/{module}/{id}/_children/{child}. The
// embedded list filters, sorts and pages in memory.
func (c *Channel) handleChildren(w http.ResponseWriter, r *http.Request) {
	src, ok := c.childSource(w, r)
	if !ok {
		return
	}
	req, err := listview.ParseRequest(r.URL.Query())
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	page, err := src.Engine().Query(r.Context(), req)
	if err != nil {
		c.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// handleCreateChild handles POST /api/{module}/{id}/_children/{child}
func (c *Channel) handleCreateChild(w http.ResponseWriter, r *http.Request) {
	src, ok := c.childSource(w, r)
	if !ok {
		return
	}
	var data map[string]any
	if err := decode(r, &data); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	rec, err := src.Create(r.Context(), data)
	if err != nil {
		c.writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": rec})
}
