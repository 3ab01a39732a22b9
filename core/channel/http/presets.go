package http

import (
	"net/http"

	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/prefs"
	"github.com/go-chi/chi/v5"
)

// handleListPresets handles GET /api/{module}/_presets
func (c *Channel) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	list, err := c.prefs.FilterPresets(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name)
	if err != nil {
		writePrefsError(w, err)
		return
	}
	if list == nil {
		list = []prefs.FilterPreset{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": list})
}

// handleSavePreset handles POST /api/{module}/_presets. A body with an id
// replaces that preset.
func (c *Channel) handleSavePreset(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	var p prefs.FilterPreset
	if err := decode(r, &p); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	status := http.StatusCreated
	if p.ID != "" {
		status = http.StatusOK
	}
	saved, err := c.prefs.SaveFilterPreset(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name, p)
	if err != nil {
		writePrefsError(w, err)
		return
	}
	writeJSON(w, status, saved)
}

// handleGetPreset handles GET /api/{module}/_presets/{pid}
func (c *Channel) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	p, err := c.prefs.FilterPreset(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name, chi.URLParam(r, "pid"))
	if err != nil {
		writePrefsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePreset handles DELETE /api/{module}/_presets/{pid}
func (c *Channel) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	if err := c.prefs.DeleteFilterPreset(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name, chi.URLParam(r, "pid")); err != nil {
		writePrefsError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleApplyPreset handles POST /api/{module}/_presets/{pid}/apply. The
// preset becomes the session's list state and the matching list query is
// returned.
func (c *Channel) handleApplyPreset(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	name := moduleFrom(r.Context()).mod.Source.Name
	p, err := c.prefs.FilterPreset(r.Context(), profile(r), name, chi.URLParam(r, "pid"))
	if err != nil {
		writePrefsError(w, err)
		return
	}

	state := p.State()
	if sid := r.Header.Get(HeaderSession); sid != "" {
		saveState(c.sessions.Get(sid), name, state)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": state,
		"expr":  p.Expr,
		"query": listview.FromState(state, 1, c.DefaultPageSize()).Values().Encode(),
	})
}

// handleGetSkipConfirm handles GET /api/{module}/_flags/skip-confirm
func (c *Channel) handleGetSkipConfirm(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	skip, err := c.prefs.SkipConfirm(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name)
	if err != nil {
		writePrefsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"skip": skip})
}

// handleSetSkipConfirm handles PUT /api/{module}/_flags/skip-confirm
func (c *Channel) handleSetSkipConfirm(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	var body struct {
		Skip bool `json:"skip"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if err := c.prefs.SetSkipConfirm(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name, body.Skip); err != nil {
		writePrefsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"skip": body.Skip})
}
