// Package logger builds the zerolog logger shared by every edgardiff component.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction
type Config struct {
	Level  string    // debug, info, warn, error (defaults to info)
	Pretty bool      // human-readable console output
	Output io.Writer // defaults to os.Stderr
	File   io.Writer // optional second sink, always JSON
}

// New creates a configured zerolog logger.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.Output != nil {
		out = cfg.Output
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	if cfg.File != nil {
		out = zerolog.MultiLevelWriter(out, cfg.File)
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", "edgardiff").
		Logger()
}
