// Package logging builds the zerolog loggers used across recon.
//
// Commands log human-readable lines to stderr when attached to a terminal and
// JSON otherwise; the server always logs JSON.
//
//	log := logging.New(logging.Config{Level: "debug"})
//	log.Info().Str("bank", path).Msg("loading records")
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, format and destination.
type Config struct {
	// Level is a zerolog level name: trace, debug, info, warn, error, disabled.
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`

	// Format is json, console or auto (console on a terminal).
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`

	// Output is stderr, stdout, discard or a file path to append to.
	Output string `yaml:"output" envconfig:"LOG_OUTPUT"`
}

// DefaultConfig logs info and above to stderr in auto format.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "auto", Output: "stderr"}
}

// New creates a logger from cfg. A file Output that cannot be opened falls back to stderr.
func New(cfg Config) zerolog.Logger {
	out, isTerm := writer(cfg.Output)
	return NewWithWriter(cfg, out, isTerm)
}

// NewWithWriter creates a logger writing to w. terminal reports whether w is a TTY
// and only matters for the auto format. Writes to w are serialized, so the
// logger may be shared across goroutines even when w is a bytes.Buffer.
func NewWithWriter(cfg Config, w io.Writer, terminal bool) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	w = zerolog.SyncWriter(w)

	format := strings.ToLower(cfg.Format)
	if format == "" || format == "auto" {
		format = "json"
		if terminal {
			format = "console"
		}
	}
	if format == "console" || format == "pretty" {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "none", "off":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

type ctxKey struct{}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}

func writer(output string) (io.Writer, bool) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr, isTerminal(os.Stderr)
	case "stdout":
		return os.Stdout, isTerminal(os.Stdout)
	case "discard", "none":
		return io.Discard, false
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return os.Stderr, isTerminal(os.Stderr)
	}
	return f, false
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
