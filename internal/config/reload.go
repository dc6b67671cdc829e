package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/as/hlsfilter/internal/log"
)

// Holder holds the current configuration and replaces it on reload.
// A reload that fails to load or validate keeps the previous configuration.
type Holder struct {
	mu        sync.RWMutex
	current   Config
	path      string
	listeners []func(prev, next Config)
	logger    zerolog.Logger

	// Debounce collapses bursts of file events into one reload
	Debounce time.Duration
}

// NewHolder returns a holder for cfg, which was loaded from path.
// An empty path disables file watching.
func NewHolder(cfg Config, path string) *Holder {
	return &Holder{
		current:  cfg,
		path:     path,
		logger:   log.WithComponent("config"),
		Debounce: 500 * time.Millisecond,
	}
}

// Get returns the current configuration
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers fn to run after every successful reload
func (h *Holder) OnReload(fn func(prev, next Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload loads the configuration again and swaps it in if it is valid
func (h *Holder) Reload() error {
	h.logger.Info().Str(log.FieldEvent, "config.reload_start").Msg("reloading configuration")
	cfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("keeping previous configuration")
		return err
	}

	h.mu.Lock()
	old := h.current
	h.current = cfg
	listeners := append([]func(prev, next Config){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(old, cfg)
	}
	h.logger.Info().Str(log.FieldEvent, "config.reload_success").Msg("configuration reloaded")
	return nil
}

// Watch reloads on SIGHUP and on changes to the config file until ctx is
// done. It watches the file's directory so atomic renames are seen.
func (h *Holder) Watch(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	var events <-chan fsnotify.Event
	var errs <-chan error
	if h.path != "" {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		defer w.Close()
		if err := w.Add(filepath.Dir(h.path)); err != nil {
			return fmt.Errorf("watch config dir: %w", err)
		}
		events, errs = w.Events, w.Errors
		h.logger.Info().Str(log.FieldEvent, "config.watcher_started").Str("path", h.path).Msg("watching config file for changes")
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	name := filepath.Clean(h.path)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(log.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil
		case <-hup:
			h.logger.Info().Str(log.FieldEvent, "config.sighup").Msg("received SIGHUP")
			h.Reload()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(h.Debounce)
			} else {
				timer.Reset(h.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			h.Reload()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			h.logger.Error().Err(err).Str(log.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}
