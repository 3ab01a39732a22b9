// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file with ERPKIT_* environment overrides;
// module descriptors come from the configured directory or, when it does
// not exist, from the built-in set.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/artpar/erpkit/adapters/clock"
	"github.com/artpar/erpkit/adapters/idgen"
	"github.com/artpar/erpkit/adapters/metrics"
	"github.com/artpar/erpkit/adapters/sqlite"
	httpChannel "github.com/artpar/erpkit/core/channel/http"
	"github.com/artpar/erpkit/core/crud"
	"github.com/artpar/erpkit/core/events"
	"github.com/artpar/erpkit/core/exporter"
	"github.com/artpar/erpkit/core/filterstate"
	"github.com/artpar/erpkit/core/prefs"
	"github.com/artpar/erpkit/core/registry"
	"github.com/artpar/erpkit/core/storage"
	"github.com/artpar/erpkit/core/validation"
	"github.com/artpar/erpkit/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// App represents the running application.
type App struct {
	Logger  zerolog.Logger
	Config  *config.Config
	Holder  *config.Holder
	Metrics *metrics.Collector

	Registry  *registry.Registry
	Store     storage.Store
	PrefsDB   *sqlite.DB
	Services  map[string]*crud.Service
	Sessions  *filterstate.Sessions
	Prefs     *prefs.Store
	Exporters *exporter.Registry
	Bus       *events.Bus
	HTTP      *httpChannel.Channel

	level  zerolog.Level
	watch  bool
	cancel context.CancelFunc
}

// Options configures application initialization.
type Options struct {
	// ConfigPath is the YAML configuration file. A missing file means
	// defaults plus environment.
	ConfigPath string

	// Watch reloads the configuration when the file changes or on SIGHUP.
	Watch bool

	// LogOutput defaults to stdout.
	LogOutput io.Writer

	// Console forces human-readable log lines.
	Console bool

	// LogLevel overrides the configured level when set.
	LogLevel string
}

// New creates and initializes the application.
func New(opts Options) (*App, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, holder, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	format := cfg.Logging.Format
	if opts.Console {
		format = "console"
	}
	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger := SetupLogger(opts.LogOutput, level, format)
	logger.Info().Str("config", opts.ConfigPath).Msg("initializing erpkit")

	a := &App{Logger: logger, Config: cfg, Holder: holder, level: zerolog.GlobalLevel(), watch: opts.Watch}
	if holder != nil {
		holder.SetLogger(logger)
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	if err := a.initStores(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initModules(context.Background()); err != nil {
		a.Close()
		return nil, err
	}
	a.initHTTP()
	a.initReload()

	return a, nil
}

func loadConfig(opts Options) (*config.Config, *config.Holder, error) {
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			h, err := config.NewHolder(opts.ConfigPath, zerolog.Nop())
			if err != nil {
				return nil, nil, err
			}
			return h.Get(), h, nil
		}
	}
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, nil, nil
}

func (a *App) initStores() error {
	cfg := a.Config

	prefsDB, err := sqlite.Open(cfg.Database.PrefsDSN)
	if err != nil {
		return fmt.Errorf("open preferences database: %w", err)
	}
	if err := prefsDB.Migrate(); err != nil {
		prefsDB.Close()
		return fmt.Errorf("migrate preferences database: %w", err)
	}
	a.PrefsDB = prefsDB
	a.Prefs = prefs.New(sqlite.NewKVStore(prefsDB), clock.Real{}, idgen.UUID{}, a.Logger)

	switch cfg.Database.Driver {
	case "postgres":
		store, err := storage.NewPostgresStore(cfg.Database.DSN, storage.PostgresOptions{
			MaxOpenConns:  20,
			MaxIdleConns:  5,
			SlowThreshold: 200 * time.Millisecond,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.Store = store
	default:
		// Records need the store's own driver for folded search, even when
		// preferences live in the same file.
		store, err := storage.NewSQLiteStore(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.Store = store
	}

	a.Logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("prefs", cfg.Database.PrefsDSN).
		Msg("database initialized")
	return nil
}

func (a *App) initModules(ctx context.Context) error {
	mods, source, err := LoadModules(a.Config.Modules.Dir)
	if err != nil {
		return err
	}

	reg, err := registry.New(NewResolver(a.Config.Navigation), mods...)
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	a.Registry = reg

	a.Bus = events.NewBus(a.Logger)
	RegisterHooks(a.Bus, reg, a.Logger)

	validator := validation.New(validation.Locale(a.Config.Locale))
	var recorder crud.Recorder
	if a.Metrics != nil {
		recorder = a.Metrics
	}

	a.Services = make(map[string]*crud.Service, reg.Len())
	for _, mod := range reg.List() {
		if err := a.Store.CreateTable(ctx, mod); err != nil {
			return fmt.Errorf("create table for %s: %w", mod.Source.Name, err)
		}
		a.Services[mod.Source.Name] = crud.NewService(mod, a.Store, crud.Options{
			Validator: validator,
			Bus:       a.Bus,
			Metrics:   recorder,
			Logger:    a.Logger,
		})
		a.Logger.Info().
			Str("module", mod.Source.Name).
			Str("route", mod.RoutePath).
			Msg("loaded module")
	}

	a.Logger.Info().Int("count", reg.Len()).Str("source", source).Msg("module registry ready")
	return nil
}

// documentSinks builds the sinks that depend on the export layout.
func documentSinks(cfg config.ExportConfig) []exporter.Sink {
	var opts []exporter.PDFOption
	if cfg.PDFFont != "" {
		opts = append(opts, exporter.WithFont(cfg.PDFFont))
	}
	layout := ExportLayout(cfg)
	return []exporter.Sink{exporter.NewExcel(layout), exporter.NewPDF(layout, opts...)}
}

func (a *App) initHTTP() {
	cfg := a.Config

	a.Sessions = filterstate.NewSessions(clock.Real{}, cfg.Sessions.TTL)

	a.Exporters = exporter.NewRegistry(append(documentSinks(cfg.Export), exporter.CSV{}, exporter.JSON{})...)

	chCfg := httpChannel.Config{
		Registry:        a.Registry,
		Services:        a.Services,
		Sessions:        a.Sessions,
		Prefs:           a.Prefs,
		Exporters:       a.Exporters,
		Bus:             a.Bus,
		Clock:           clock.Real{},
		ServerSide:      cfg.List.ServerSide,
		DefaultPageSize: cfg.List.DefaultPageSize,
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		Logger:          a.Logger,
	}
	if a.Metrics != nil {
		chCfg.Metrics = a.Metrics
		chCfg.MetricsHandler = promhttp.Handler()
		chCfg.MetricsPath = cfg.Metrics.Path
	}
	a.HTTP = httpChannel.New(chCfg)
}

// initReload applies reloadable settings when the configuration changes.
func (a *App) initReload() {
	if a.Holder == nil {
		return
	}
	a.Holder.OnChange(func(cfg *config.Config) {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil && level != a.level {
			zerolog.SetGlobalLevel(level)
			a.level = level
		}
		a.HTTP.SetDefaultPageSize(cfg.List.DefaultPageSize)
		a.Sessions.SetTTL(cfg.Sessions.TTL)
		for _, s := range documentSinks(cfg.Export) {
			a.Exporters.Register(s)
		}
	})
	if a.Metrics != nil {
		a.Holder.OnReload(func(err error) {
			a.Metrics.RecordReload(err, time.Now())
		})
	}
}

// Run starts the HTTP server and blocks until ctx ends or a signal
// arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	if a.watch && a.Holder != nil {
		if err := a.Holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
		a.Holder.WatchSignals()
	}

	go clock.Every(ctx, a.Config.Sessions.SweepInterval, func() {
		if n := a.Sessions.Sweep(); n > 0 {
			a.Logger.Debug().Int("sessions", n).Msg("expired sessions removed")
		}
	})

	if err := a.HTTP.Start(ctx); err != nil {
		a.Close()
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-ctx.Done():
		a.Logger.Info().Msg("context cancelled, shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the server and closes the stores.
func (a *App) Shutdown() error {
	timeout := a.Config.Server.ShutdownTimeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.cancel != nil {
		a.cancel()
	}
	if a.Holder != nil {
		a.Holder.Stop()
	}

	var errs []error
	if a.HTTP != nil {
		if err := a.HTTP.Stop(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			errs = append(errs, err)
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	a.Logger.Info().Msg("shutdown complete")
	return errors.Join(errs...)
}

// Close releases the stores without touching the server.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		a.Store = nil
	}
	if a.PrefsDB != nil {
		if err := a.PrefsDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close preferences: %w", err))
		}
		a.PrefsDB = nil
	}
	return errors.Join(errs...)
}

// SetupLogger builds the process logger. format is "json" or "console".
func SetupLogger(out io.Writer, levelStr, format string) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
