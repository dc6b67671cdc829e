// Package log provides the structured logger shared by the service and the CLI.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Canonical field names
const (
	FieldComponent = "component"
	FieldEvent     = "event"
	FieldRequestID = "request_id"
	FieldKind      = "kind"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stderr)
	Service string    // optional service name attached to every log entry
	Version string
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure initialises the global zerolog logger exactly once.
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if l, err := zerolog.ParseLevel(cfg.Level); err == nil && cfg.Level != "" {
			level = l
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		w := cfg.Output
		if w == nil {
			w = os.Stderr
		}
		service := cfg.Service
		if service == "" {
			service = "hlsfilter"
		}
		base = zerolog.New(w).With().
			Timestamp().
			Str("service", service).
			Str("version", cfg.Version).
			Logger()
	})
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str(FieldComponent, component).Logger()
}

// SetLevel changes the global level. Used on config reload.
func SetLevel(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	return nil
}
