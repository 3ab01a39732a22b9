// Package http serves the module registry, list queries, record CRUD,
// exports and per-profile preferences over a chi router.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/events"
	"github.com/artpar/erpkit/core/exporter"
	"github.com/artpar/erpkit/core/filterstate"
	"github.com/artpar/erpkit/core/listview"
	"github.com/artpar/erpkit/core/prefs"
	"github.com/artpar/erpkit/core/registry"
	"github.com/artpar/erpkit/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Request headers naming the caller's browser session and profile.
const (
	HeaderSession = "X-Session-ID"
	HeaderProfile = "X-Profile-ID"
)

// DefaultProfile is used when a request carries no profile header.
const DefaultProfile = "default"

// Metrics records request and export outcomes.
type Metrics interface {
	RecordRequest(method, route string, status int, d time.Duration)
	RecordExport(format string, rows int, err error)
	AddFeedClients(delta int)
}

// Config wires a Channel.
type Config struct {
	Registry  *registry.Registry
	Services  map[string]*crud.Service
	Sessions  *filterstate.Sessions
	Prefs     *prefs.Store
	Exporters *exporter.Registry
	Bus       *events.Bus
	Clock     ports.Clock

	// ServerSide pushes list queries to the store.
	ServerSide      bool
	DefaultPageSize int

	Metrics        Metrics
	MetricsHandler http.Handler
	MetricsPath    string

	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logger zerolog.Logger
}

// Channel implements the HTTP channel for modules.
type Channel struct {
	router    chi.Router
	registry  *registry.Registry
	services  map[string]*crud.Service
	engines   map[string]*listview.Engine
	sessions  *filterstate.Sessions
	prefs     *prefs.Store
	exporters *exporter.Registry
	bus       *events.Bus
	clock     ports.Clock
	metrics   Metrics
	logger    zerolog.Logger

	pageSize atomic.Int64

	cfg    Config
	server *http.Server
}

// New creates a new HTTP channel.
func New(cfg Config) *Channel {
	c := &Channel{
		router:    chi.NewRouter(),
		registry:  cfg.Registry,
		services:  cfg.Services,
		engines:   make(map[string]*listview.Engine, len(cfg.Services)),
		sessions:  cfg.Sessions,
		prefs:     cfg.Prefs,
		exporters: cfg.Exporters,
		bus:       cfg.Bus,
		clock:     cfg.Clock,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("component", "http").Logger(),
		cfg:       cfg,
	}
	if c.clock == nil {
		c.clock = systemClock{}
	}
	if c.sessions == nil {
		c.sessions = filterstate.NewSessions(c.clock, 0)
	}
	if c.exporters == nil {
		c.exporters = exporter.DefaultRegistry(exporter.DefaultLayout())
	}
	c.SetDefaultPageSize(cfg.DefaultPageSize)

	for name, svc := range c.services {
		c.engines[name] = svc.Engine(cfg.ServerSide)
	}

	c.routes()
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string {
	return "http"
}

// Handler returns the HTTP handler.
func (c *Channel) Handler() http.Handler {
	return c.router
}

// SetDefaultPageSize changes the page size of list requests that name
// none. Values below the minimum fall back to the package default.
func (c *Channel) SetDefaultPageSize(n int) {
	if n < listview.MinPageSize {
		n = listview.DefaultPageSize
	}
	c.pageSize.Store(int64(n))
}

// DefaultPageSize returns the current default page size.
func (c *Channel) DefaultPageSize() int {
	return int(c.pageSize.Load())
}

func (c *Channel) routes() {
	r := c.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(c.logRequests)
	r.Use(c.recoverer)

	r.Get("/healthz", c.handleHealth)
	if c.cfg.MetricsHandler != nil {
		path := c.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, c.cfg.MetricsHandler)
	}
	if c.bus != nil {
		r.Get("/ws/changes", c.handleChanges)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/_modules", c.handleModules)
		r.Get("/_modules/{module}", c.handleModule)
		r.Get("/_nav/resolve", c.handleResolve)

		r.Route("/{module}", func(r chi.Router) {
			r.Use(c.moduleCtx)

			r.Get("/", c.handleList)
			r.Post("/", c.handleCreate)
			r.Delete("/", c.handleDeleteMany)

			r.Get("/_suggest", c.handleSuggest)
			r.Get("/_form", c.handleForm)
			r.Post("/_export", c.handleExport)

			r.Get("/_templates", c.handleListTemplates)
			r.Post("/_templates", c.handleSaveTemplate)
			r.Get("/_templates/{tid}", c.handleGetTemplate)
			r.Delete("/_templates/{tid}", c.handleDeleteTemplate)

			r.Get("/_presets", c.handleListPresets)
			r.Post("/_presets", c.handleSavePreset)
			r.Get("/_presets/{pid}", c.handleGetPreset)
			r.Delete("/_presets/{pid}", c.handleDeletePreset)
			r.Post("/_presets/{pid}/apply", c.handleApplyPreset)

			r.Get("/_flags/skip-confirm", c.handleGetSkipConfirm)
			r.Put("/_flags/skip-confirm", c.handleSetSkipConfirm)

			r.Get("/{id}", c.handleGet)
			r.Patch("/{id}", c.handleUpdate)
			r.Put("/{id}", c.handleUpdate)
			r.Delete("/{id}", c.handleDelete)
			r.Get("/{id}/_form", c.handleForm)
			r.Get("/{id}/_children/{child}", c.handleChildren)
			r.Post("/{id}/_children/{child}", c.handleCreateChild)
		})
	})
}

// Start starts the HTTP server in the background.
func (c *Channel) Start(ctx context.Context) error {
	// Only start if addr is set (standalone mode)
	if c.cfg.Addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", c.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.cfg.Addr, err)
	}
	c.server = &http.Server{
		Handler:      c.router,
		ReadTimeout:  c.cfg.ReadTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
	}

	go func() {
		c.logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error().Err(err).Msg("http server error")
		}
	}()

	return nil
}

// Stop stops the HTTP server.
func (c *Channel) Stop(ctx context.Context) error {
	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

func (c *Channel) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "modules": c.registry.Len()})
}

// logRequests logs every request and records it by route pattern.
func (c *Channel) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		if c.metrics != nil {
			c.metrics.RecordRequest(r.Method, route, status, time.Since(start))
		}

		if route == "/healthz" || route == c.cfg.MetricsPath {
			return
		}
		c.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// recoverer turns a handler panic into a 500 the client can retry.
func (c *Channel) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			c.logger.Error().
				Interface("panic", rec).
				Str("path", r.URL.Path).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("handler panic")
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error":   "Đã xảy ra lỗi không mong muốn",
				"actions": []string{"retry", "reload"},
			})
		}()
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, err error, status int) {
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}

func profile(r *http.Request) string {
	if p := r.Header.Get(HeaderProfile); p != "" {
		return p
	}
	return DefaultProfile
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadJSON{err}
	}
	return nil
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type errBadJSON struct{ err error }

func (e errBadJSON) Error() string { return "invalid JSON: " + e.err.Error() }
func (e errBadJSON) Unwrap() error { return e.err }
