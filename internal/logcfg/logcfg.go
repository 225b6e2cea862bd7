// Package logcfg wires a CLI's --log-level/--log-format flags to a
// log/slog.Handler. Adapted from MacroPower-x/log's Config/Flags/
// RegisterFlags/NewHandler, collapsed to the single flat Config this
// module needs (no Publisher fan-out, since convertbuddy writes to exactly
// one log sink at a time: stderr, or a log file while --tui is active).
package logcfg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
)

// Format is the log encoding written to the handler's writer.
type Format string

const (
	FormatJSON    Format = "json"
	FormatLogfmt  Format = "logfmt"
	defaultLevel         = "info"
	defaultFormat        = "logfmt"
)

var (
	ErrUnknownLevel  = errors.New("logcfg: unknown log level")
	ErrUnknownFormat = errors.New("logcfg: unknown log format")
)

// Flags holds the CLI flag names for log configuration, so a host can
// rename them without forking this package.
type Flags struct {
	Level  string
	Format string
}

// Config holds CLI flag values for log configuration. Populate via
// RegisterFlags against a cobra/pflag command, then call NewHandler.
type Config struct {
	Level  string
	Format string
	Flags  Flags
}

// NewConfig returns a Config using the conventional --log-level/--log-format
// flag names.
func NewConfig() *Config {
	return &Config{
		Flags: Flags{Level: "log-level", Format: "log-format"},
	}
}

// RegisterFlags adds logging flags to flags, defaulting to info/logfmt.
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Level, c.Flags.Level, defaultLevel,
		"log level, one of: debug, info, warn, error")
	flags.StringVar(&c.Format, c.Flags.Format, defaultFormat,
		"log format, one of: json, logfmt")
}

// NewHandler builds a slog.Handler writing to w using c's resolved level
// and format.
func (c *Config) NewHandler(w io.Writer) (slog.Handler, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("logcfg: %w", err)
	}
	format, err := parseFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("logcfg: %w", err)
	}
	return newHandler(w, level, format), nil
}

func newHandler(w io.Writer, level slog.Level, format Format) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
}

func parseFormat(format string) (Format, error) {
	switch Format(strings.ToLower(format)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatLogfmt, "":
		return FormatLogfmt, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
