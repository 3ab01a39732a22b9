package bootstrap_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/erpkit/bootstrap"
	"github.com/artpar/erpkit/core/exporter"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "erpkit.yaml")
	content := "database:\n" +
		"  dsn: " + filepath.Join(dir, "records.db") + "\n" +
		"  prefs_dsn: " + filepath.Join(dir, "prefs.db") + "\n" +
		"modules:\n" +
		"  dir: " + filepath.Join(dir, "modules") + "\n" +
		"logging:\n" +
		"  level: error\n" +
		extra
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newApp(t *testing.T, path string) *bootstrap.App {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	app, err := bootstrap.New(bootstrap.Options{ConfigPath: path, LogOutput: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNew_EmbeddedModules(t *testing.T) {
	dir := t.TempDir()
	app := newApp(t, writeConfig(t, dir, ""))

	assert.Equal(t, 3, app.Registry.Len())
	assert.Len(t, app.Services, 3)
	assert.NotNil(t, app.Holder)
	assert.NotNil(t, app.Prefs)
	assert.Nil(t, app.Metrics)

	h := app.HTTP.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	body := strings.NewReader(`{"ma":"KT","ten":"Kế toán"}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/phong_ban", body))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/phong_ban", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kế toán")

	// Templates persist in the preference database.
	rec = httptest.NewRecorder()
	tpl := strings.NewReader(`{"name":"Mặc định","config":{"selectedColumns":["ma","ten"]}}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/phong_ban/_templates", tpl))
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestNew_ModulesDir(t *testing.T) {
	dir := t.TempDir()
	mods := filepath.Join(dir, "modules")
	require.NoError(t, os.MkdirAll(mods, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mods, "kho.yaml"), []byte(`module: kho
title: Kho hàng
route_path: /kho
columns:
  - id: ma
sections:
  - title: Kho
    fields:
      - name: ma
        type: text
`), 0o644))

	app := newApp(t, writeConfig(t, dir, ""))
	assert.Equal(t, 1, app.Registry.Len())
	_, ok := app.Registry.ByPath("/kho/create")
	assert.True(t, ok)
}

func TestNew_WithoutConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ERPKIT_DATABASE_DSN", filepath.Join(dir, "records.db"))
	t.Setenv("ERPKIT_DATABASE_PREFS_DSN", filepath.Join(dir, "prefs.db"))
	t.Setenv("ERPKIT_LOG_LEVEL", "error")

	app := newApp(t, filepath.Join(dir, "missing.yaml"))
	assert.Nil(t, app.Holder)
	assert.Equal(t, 3, app.Registry.Len())
}

func TestNew_BadModulesDir(t *testing.T) {
	dir := t.TempDir()
	mods := filepath.Join(dir, "modules")
	require.NoError(t, os.MkdirAll(mods, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(mods, "x.yaml"), []byte("module: ["), 0o644))

	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	_, err := bootstrap.New(bootstrap.Options{ConfigPath: writeConfig(t, dir, ""), LogOutput: io.Discard})
	assert.Error(t, err)
}

func TestReload_AppliesPageSize(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "list:\n  default_page_size: 20\n")
	app := newApp(t, path)
	assert.Equal(t, 20, app.HTTP.DefaultPageSize())

	writeConfig(t, dir, "list:\n  default_page_size: 50\n")
	require.NoError(t, app.Holder.Reload())
	assert.Equal(t, 50, app.HTTP.DefaultPageSize())
}

func TestReload_AppliesExportAndSessions(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "sessions:\n  ttl: 30m\n")
	app := newApp(t, path)
	assert.Equal(t, 30*time.Minute, app.Sessions.TTL())

	writeConfig(t, dir, "sessions:\n  ttl: 2h\n"+
		"export:\n  min_column_width: 14\n  orientation: landscape\n")
	require.NoError(t, app.Holder.Reload())
	assert.Equal(t, 2*time.Hour, app.Sessions.TTL())

	sink, ok := app.Exporters.Get(exporter.FormatExcel)
	require.True(t, ok)
	assert.Equal(t, 14.0, sink.(*exporter.Excel).Layout().MinColumnWidth)

	sink, ok = app.Exporters.Get(exporter.FormatPDF)
	require.True(t, ok)
	assert.Equal(t, exporter.OrientationLandscape, sink.(*exporter.PDF).Layout().Orientation)
}

func TestRun_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "server:\n  host: 127.0.0.1\n  port: 18931\n  shutdown_timeout: 2s\n")
	app := newApp(t, path)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18931/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSetupLogger(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	tests := []struct {
		name    string
		level   string
		format  string
		logged  bool
		console bool
	}{
		{name: "json info", level: "info", format: "json", logged: true},
		{name: "bad level defaults to info", level: "loud", format: "json", logged: true},
		{name: "error hides info", level: "error", format: "json", logged: false},
		{name: "console", level: "debug", format: "console", logged: true, console: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := bootstrap.SetupLogger(&buf, tt.level, tt.format)
			logger.Info().Msg("xin chào")

			if !tt.logged {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), "xin chào")
			assert.Equal(t, tt.console, !strings.HasPrefix(buf.String(), "{"))
		})
	}
}
