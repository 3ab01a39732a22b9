package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/filterstate"
	"github.com/artpar/erpkit/core/form"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/navigation"
	"github.com/artpar/erpkit/core/schema"
	"github.com/artpar/erpkit/core/search"
	"github.com/artpar/erpkit/core/storage"
	"github.com/go-chi/chi/v5"
)

var errBadID = errors.New("mã bản ghi không hợp lệ")

// listResponse is one page of a module list.
type listResponse struct {
	listview.Page
	Chips []listview.Chip `json:"chips"`
	Query string          `json:"query"`
}

// handleList handles GET /api/{module}
func (c *Channel) handleList(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())

	req, err := c.listRequest(r, e.mod.Source.Name)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	page, err := c.engines[e.mod.Source.Name].Query(r.Context(), req)
	if err != nil {
		c.writeQueryError(w, err)
		return
	}

	filters, _ := listview.DecodeFilters(e.mod.Columns, req.Filters)
	writeJSON(w, http.StatusOK, listResponse{
		Page:  page,
		Chips: listview.FilterChips(e.mod.Columns, filters, req.Search),
		Query: req.Values().Encode(),
	})
}

// listRequest reads the list query. With a session header, a request
// naming no search, filters or sort continues from the stored state, and
// one naming any of them replaces it.
func (c *Channel) listRequest(r *http.Request, module string) (listview.Request, error) {
	q := r.URL.Query()
	req, err := listview.ParseRequest(q)
	if err != nil {
		return listview.Request{}, err
	}
	if !q.Has(listview.ParamPageSize) {
		req.PageSize = c.DefaultPageSize()
	}

	sid := r.Header.Get(HeaderSession)
	if sid == "" {
		return req, nil
	}
	st := c.sessions.Get(sid)

	if !hasListState(q) {
		return listview.FromState(st.Snapshot(module), req.Page, req.PageSize), nil
	}

	prev := listview.FromState(st.Snapshot(module), req.Page, req.PageSize)
	req = req.Follow(prev)
	saveState(st, module, filterstate.ModuleState{Filters: req.Filters, SearchQuery: req.Search, Sort: req.Sort})
	if req.IsSearch() {
		st.AddRecentSearch(module, req.Search)
	}
	return req, nil
}

func hasListState(q url.Values) bool {
	return q.Has(listview.ParamSearch) || q.Has(listview.ParamFilters) || q.Has(listview.ParamSort)
}

// saveState replaces the stored state of a module.
func saveState(st *filterstate.Store, module string, state filterstate.ModuleState) {
	st.ReplaceFilters(module, state.Filters)
	st.SetSearchQuery(module, state.SearchQuery)
	if state.Sort != nil && state.Sort.Column != "" {
		st.SetSortPreference(module, *state.Sort)
	} else {
		st.ClearSortPreference(module)
	}
}

func (c *Channel) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, listview.ErrInvalidQuery) {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	c.logger.Error().Err(err).Msg("list query failed")
	writeError(w, err, http.StatusInternalServerError)
}

// handleGet handles GET /api/{module}/{id}
func (c *Channel) handleGet(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())
	id, ok := navigation.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errBadID, http.StatusBadRequest)
		return
	}

	rec, err := e.svc.Get(r.Context(), id)
	if err != nil {
		c.writeMutationError(w, err)
		return
	}

	paths := c.registry.Resolver().Paths(e.mod.RoutePath)
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   rec,
		"detail": form.RenderDetail(e.mod.Source.Sections, rec),
		"paths": map[string]string{
			"list": paths.List(),
			"edit": paths.Edit(id),
		},
	})
}

// handleCreate handles POST /api/{module}
func (c *Channel) handleCreate(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())

	var data map[string]any
	if err := decode(r, &data); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	rec, err := e.svc.Create(r.Context(), data)
	if err != nil {
		c.writeMutationError(w, err)
		return
	}

	id := recordID(rec, e.mod.Source.PrimaryKey())
	paths := c.registry.Resolver().Paths(e.mod.RoutePath)
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       id,
		"data":     rec,
		"redirect": paths.AfterSubmit(navigation.State{IsNew: true}, id, navigation.ParseReturnTo(r.URL.Query())),
	})
}

// handleUpdate handles PATCH and PUT /api/{module}/{id}
func (c *Channel) handleUpdate(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())
	id, ok := navigation.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errBadID, http.StatusBadRequest)
		return
	}

	var patch map[string]any
	if err := decode(r, &patch); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	rec, err := e.svc.Update(r.Context(), id, patch)
	if err != nil {
		c.writeMutationError(w, err)
		return
	}

	paths := c.registry.Resolver().Paths(e.mod.RoutePath)
	state := navigation.State{IsEdit: true, CurrentID: &id}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"data":     rec,
		"redirect": paths.AfterSubmit(state, id, navigation.ParseReturnTo(r.URL.Query())),
	})
}

// handleDelete handles DELETE /api/{module}/{id}
func (c *Channel) handleDelete(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())
	id, ok := navigation.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errBadID, http.StatusBadRequest)
		return
	}

	n, err := e.svc.Remove(r.Context(), []int64{id})
	if err != nil {
		c.writeMutationError(w, err)
		return
	}
	if n == 0 {
		writeError(w, storage.ErrNotFound, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteMany handles DELETE /api/{module} with {"ids": [...]}.
func (c *Channel) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())

	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if len(body.IDs) == 0 {
		writeError(w, fmt.Errorf("ids is required"), http.StatusBadRequest)
		return
	}

	n, err := e.svc.Remove(r.Context(), body.IDs)
	if err != nil {
		c.writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// handleSuggest handles GET /api/{module}/_suggest?q=
func (c *Channel) handleSuggest(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	rows, err := e.svc.FetchAll(r.Context())
	if err != nil {
		c.writeMutationError(w, err)
		return
	}

	suggestions := search.Suggestions(rows, e.mod.SearchFields, q.Get("q"), limit)
	if suggestions == nil {
		suggestions = []string{}
	}

	var recent []string
	if sid := r.Header.Get(HeaderSession); sid != "" {
		recent = c.sessions.Get(sid).RecentSearches(e.mod.Source.Name, 0)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": suggestions,
		"recent":      recent,
	})
}

// handleForm handles GET /api/{module}/_form and /api/{module}/{id}/_form.
// It describes the create or edit form with its current values.
func (c *Channel) handleForm(w http.ResponseWriter, r *http.Request) {
	e := moduleFrom(r.Context())
	paths := c.registry.Resolver().Paths(e.mod.RoutePath)
	rt := navigation.ParseReturnTo(r.URL.Query())

	cfg := form.Config{Sections: e.mod.Source.Sections, Mode: form.ModeCreate}
	state := navigation.State{IsNew: true}

	if raw := chi.URLParam(r, "id"); raw != "" {
		id, ok := navigation.ParseID(raw)
		if !ok {
			writeError(w, errBadID, http.StatusBadRequest)
			return
		}
		rec, err := e.svc.Get(r.Context(), id)
		if err != nil {
			c.writeMutationError(w, err)
			return
		}
		cfg.Mode, cfg.Defaults = form.ModeEdit, rec
		state = navigation.State{IsEdit: true, CurrentID: &id}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"mode":     cfg.Mode,
		"title":    e.mod.Title,
		"sections": form.New(cfg).Render(),
		"cancel":   paths.AfterCancel(state, rt),
	})
}

// writeMutationError maps a service error to a status. Validation
// failures carry the per-field list.
func (c *Channel) writeMutationError(w http.ResponseWriter, err error) {
	var verr *crud.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := verr.Result.Errors
		if fields == nil {
			fields = []schema.ConstraintError{}
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "Dữ liệu không hợp lệ",
			"fields": fields,
		})
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, err, http.StatusNotFound)
	default:
		c.logger.Error().Err(err).Msg("record operation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": crud.Message(err)})
	}
}

func recordID(rec storage.Record, pk string) int64 {
	switch v := rec[pk].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}
