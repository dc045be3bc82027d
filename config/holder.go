// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// ReloadObserver records reload outcomes.
type ReloadObserver interface {
	ObserveConfigReload(err error)
}

// Holder provides thread-safe access to configuration with hot reload support.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	observer ReloadObserver
	stopCh   chan struct{}
	stopOnce sync.Once
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

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Observe reports every reload to obs.
func (h *Holder) Observe(obs ReloadObserver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = obs
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)

	h.mu.Lock()
	obs := h.observer
	oldCfg := h.config
	if err == nil {
		h.config = newCfg
	}
	listeners := append([]func(*Config){}, h.onChange...)
	h.mu.Unlock()

	if obs != nil {
		obs.ObserveConfigReload(err)
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		return fmt.Errorf("reload config: %w", err)
	}

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
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
	h.stopOnce.Do(func() {
		close(h.stopCh)
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

// reloadDebounce coalesces the burst of events editors emit for one save.
const reloadDebounce = 100 * time.Millisecond

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	var pending <-chan time.Time
	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			// Atomic saves show up as Create.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("config file changed")
				pending = time.After(reloadDebounce)
			}

		case <-pending:
			pending = nil
			if err := h.Reload(); err != nil {
				h.logger.Error().Err(err).Msg("file watch reload failed")
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

type field struct {
	name string
	get  func(*Config) string
}

// restartFields are read once at startup.
var restartFields = []field{
	{"server.host", func(c *Config) string { return c.Server.Host }},
	{"server.port", func(c *Config) string { return strconv.Itoa(c.Server.Port) }},
	{"database.driver", func(c *Config) string { return c.Database.Driver }},
	{"database.dsn", func(c *Config) string { return c.Database.DSN }},
	{"database.remote.url", func(c *Config) string { return c.Database.Remote.URL }},
	{"redis.url", func(c *Config) string { return c.Redis.URL }},
	{"redis.flow_ttl", func(c *Config) string { return c.Redis.FlowTTL.String() }},
	{"kafka.brokers", func(c *Config) string { return strings.Join(c.Kafka.Brokers, ",") }},
	{"kafka.topic", func(c *Config) string { return c.Kafka.Topic }},
	{"billing.timezone", func(c *Config) string { return c.Billing.Timezone }},
	{"billing.group_by", func(c *Config) string { return c.Billing.GroupBy }},
	{"logging.format", func(c *Config) string { return c.Logging.Format }},
	{"metrics.enabled", func(c *Config) string { return strconv.FormatBool(c.Metrics.Enabled) }},
	{"openapi.enabled", func(c *Config) string { return strconv.FormatBool(c.OpenAPI.Enabled) }},
}

// RestartRequired lists the fields that differ between old and new but only
// take effect after a restart.
func RestartRequired(old, new *Config) []string {
	var changed []string
	for _, f := range restartFields {
		if f.get(old) != f.get(new) {
			changed = append(changed, f.name)
		}
	}
	return changed
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if old.Payment.Provider != new.Payment.Provider {
		h.logger.Info().
			Str("old", old.Payment.Provider).
			Str("new", new.Payment.Provider).
			Msg("payment provider changed, applies only if not set in the settings store")
	}

	if changed := RestartRequired(old, new); len(changed) > 0 {
		h.logger.Warn().Strs("fields", changed).Msg("changes need a restart to apply")
	}
}

// ReloadableFields returns which fields can be changed without restart.
// Payment values seed keys missing from the settings store; the store is
// reread on every reload.
func ReloadableFields() []string {
	return []string{
		"logging.level",
		"payment.provider",
		"payment.stripe",
		"payment.remote",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	names := make([]string, len(restartFields))
	for i, f := range restartFields {
		names[i] = f.name
	}
	return names
}
