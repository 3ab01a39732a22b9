// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to configuration with hot reload support.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	onReload []func(error)
	stopCh   chan struct{}
}

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		config: cfg,
		path:   absPath,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	return h, nil
}

// SetLogger replaces the logger used for reload messages.
func (h *Holder) SetLogger(logger zerolog.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = logger
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		h.notifyReload(err)
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	// Log what changed
	h.logChanges(oldCfg, newCfg)

	// Notify listeners
	for _, fn := range listeners {
		fn(newCfg)
	}
	h.notifyReload(nil)

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReload registers a callback run after every reload attempt with its
// error, nil on success.
func (h *Holder) OnReload(fn func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = append(h.onReload, fn)
}

func (h *Holder) notifyReload(err error) {
	h.mu.RLock()
	observers := append([]func(error){}, h.onReload...)
	h.mu.RUnlock()
	for _, fn := range observers {
		fn(err)
	}
}

// WatchFile starts watching the config file for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory (more reliable for editors that do atomic saves)
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go func() {
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals.
func (h *Holder) Stop() {
	close(h.stopCh)
	if h.watcher != nil {
		h.watcher.Close()
	}
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}

			// Only react to our config file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if old.List.DefaultPageSize != new.List.DefaultPageSize {
		h.logger.Info().
			Int("old", old.List.DefaultPageSize).
			Int("new", new.List.DefaultPageSize).
			Msg("default page size changed")
	}

	if !reflect.DeepEqual(old.Export, new.Export) {
		h.logger.Info().Msg("export layout changed")
	}

	if old.Sessions.TTL != new.Sessions.TTL {
		h.logger.Info().
			Dur("old", old.Sessions.TTL).
			Dur("new", new.Sessions.TTL).
			Msg("session ttl changed")
	}

	for _, f := range NonReloadableFields() {
		if changed(old, new, f) {
			h.logger.Warn().Str("field", f).Msg("field changed but requires a restart")
		}
	}
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"logging.level",
		"list.default_page_size",
		"export",
		"sessions.ttl",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"database.driver",
		"database.dsn",
		"modules.dir",
		"navigation",
		"locale",
	}
}

func changed(old, new *Config, field string) bool {
	switch field {
	case "server.host":
		return old.Server.Host != new.Server.Host
	case "server.port":
		return old.Server.Port != new.Server.Port
	case "database.driver":
		return old.Database.Driver != new.Database.Driver
	case "database.dsn":
		return old.Database.DSN != new.Database.DSN
	case "modules.dir":
		return old.Modules.Dir != new.Modules.Dir
	case "navigation":
		return old.Navigation.CreateToken != new.Navigation.CreateToken || old.Navigation.EditToken != new.Navigation.EditToken
	case "locale":
		return old.Locale != new.Locale
	}
	return false
}
