package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/artpar/erpkit/core/exporter"
	"github.com/artpar/erpkit/core/filterstate"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/prefs"
	"github.com/go-chi/chi/v5"
)

// exportBody is the body of POST /api/{module}/_export. A missing config
// falls back to the named template, then to the last used preferences.
type exportBody struct {
	Format      exporter.Format             `json:"format"`
	Mode        exporter.Mode               `json:"mode"`
	SelectedIDs []string                    `json:"selectedIds"`
	Config      *exporter.Config            `json:"config"`
	TemplateID  string                      `json:"templateId"`
	Search      string                      `json:"search"`
	Filters     map[string]any              `json:"filters"`
	Sort        *filterstate.SortPreference `json:"sort"`
}

// handleExport handles POST /api/{module}/_export
func (c *Channel) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := moduleFrom(ctx)
	name := e.mod.Source.Name
	prof := profile(r)

	var body exportBody
	if err := decode(r, &body); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	cfg, err := c.exportConfig(r, name, body)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, prefs.ErrTemplateNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, err, status)
		return
	}

	format := firstNonEmpty(body.Format, cfg.DefaultFormat, exporter.FormatExcel)
	mode := firstNonEmpty(body.Mode, cfg.DefaultMode, exporter.ModeFiltered)
	switch mode {
	case exporter.ModeAll, exporter.ModeFiltered, exporter.ModeSelected:
	default:
		writeError(w, fmt.Errorf("unknown export mode %q", mode), http.StatusBadRequest)
		return
	}

	listReq := listview.Request{Search: body.Search, Filters: body.Filters, Sort: body.Sort}
	if body.Search == "" && body.Filters == nil && body.Sort == nil {
		if sid := r.Header.Get(HeaderSession); sid != "" {
			listReq = listview.FromState(c.sessions.Get(sid).Snapshot(name), 1, 0)
		}
	}

	rows, err := e.svc.FetchAll(ctx)
	if err != nil {
		c.writeMutationError(w, err)
		return
	}
	var filtered []listview.Row
	if mode == exporter.ModeFiltered {
		if filtered, err = c.engines[name].Filtered(ctx, listReq); err != nil {
			c.writeQueryError(w, err)
			return
		}
		if filtered == nil {
			filtered = []listview.Row{}
		}
	}

	active, _ := listview.DecodeFilters(e.mod.Columns, listReq.Filters)
	var chips []string
	for _, chip := range listview.FilterChips(e.mod.Columns, active, "") {
		chips = append(chips, chip.Label+": "+chip.Value)
	}

	var buf bytes.Buffer
	filename, n, err := c.exporters.Export(&buf, format, exporter.Request{
		Module:      name,
		Title:       e.mod.Title,
		Columns:     e.mod.Columns,
		Rows:        rows,
		Filtered:    filtered,
		Mode:        mode,
		SelectedIDs: body.SelectedIDs,
		IDKey:       e.mod.Source.PrimaryKey(),
		Config:      cfg,
		Filters:     chips,
		Search:      listReq.Search,
		Now:         c.clock.Now(),
	})
	if c.metrics != nil {
		c.metrics.RecordExport(string(format), n, err)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, exporter.ErrUnknownFormat) || errors.Is(err, exporter.ErrNothingSelected) || errors.Is(err, exporter.ErrNoColumns) {
			status = http.StatusBadRequest
		} else {
			c.logger.Error().Err(err).Str("module", name).Str("format", string(format)).Msg("export failed")
		}
		writeError(w, err, status)
		return
	}

	if c.prefs != nil {
		last := cfg
		last.DefaultFormat, last.DefaultMode = format, mode
		if err := c.prefs.SaveExportPreferences(ctx, prof, name, last); err != nil {
			c.logger.Warn().Err(err).Str("module", name).Msg("saving export preferences failed")
		}
	}

	sink, _ := c.exporters.Get(format)
	w.Header().Set("Content-Type", sink.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Export-Rows", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (c *Channel) exportConfig(r *http.Request, module string, body exportBody) (exporter.Config, error) {
	if body.Config != nil {
		return *body.Config, nil
	}
	defaults := exporter.Config{ExportOptions: exporter.DefaultOptions()}
	if c.prefs == nil {
		return defaults, nil
	}
	if body.TemplateID != "" {
		tpl, err := c.prefs.LoadExportTemplate(r.Context(), profile(r), module, body.TemplateID)
		if err != nil {
			return exporter.Config{}, err
		}
		return tpl.Config, nil
	}
	cfg, ok, err := c.prefs.ExportPreferences(r.Context(), profile(r), module)
	if err != nil {
		return exporter.Config{}, err
	}
	if !ok {
		return defaults, nil
	}
	return cfg, nil
}

func firstNonEmpty[T ~string](vals ...T) T {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// handleListTemplates handles GET /api/{module}/_templates
func (c *Channel) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	list, err := c.prefs.ExportTemplates(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []prefs.ExportTemplate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": list, "max": prefs.MaxTemplates})
}

// handleSaveTemplate handles POST /api/{module}/_templates
func (c *Channel) handleSaveTemplate(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	var body struct {
		Name   string          `json:"name"`
		Config exporter.Config `json:"config"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	tpl, err := c.prefs.SaveExportTemplate(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name, body.Name, body.Config)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, prefs.ErrTemplateName) {
			status = http.StatusBadRequest
		}
		writeError(w, err, status)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// handleGetTemplate handles GET /api/{module}/_templates/{tid}
func (c *Channel) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	tpl, err := c.prefs.LoadExportTemplate(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name, chi.URLParam(r, "tid"))
	if err != nil {
		writePrefsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// handleDeleteTemplate handles DELETE /api/{module}/_templates/{tid}
func (c *Channel) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if !c.requirePrefs(w) {
		return
	}
	err := c.prefs.DeleteExportTemplate(r.Context(), profile(r), moduleFrom(r.Context()).mod.Source.Name, chi.URLParam(r, "tid"))
	if err != nil {
		writePrefsError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Channel) requirePrefs(w http.ResponseWriter) bool {
	if c.prefs == nil {
		writeError(w, errors.New("preferences are not configured"), http.StatusNotImplemented)
		return false
	}
	return true
}

func writePrefsError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prefs.ErrTemplateNotFound), errors.Is(err, prefs.ErrPresetNotFound):
		writeError(w, err, http.StatusNotFound)
	case errors.Is(err, prefs.ErrTemplateName), errors.Is(err, prefs.ErrPresetName), errors.Is(err, prefs.ErrPresetExpr):
		writeError(w, err, http.StatusBadRequest)
	default:
		writeError(w, err, http.StatusInternalServerError)
	}
}
