package client

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	httperrors "github.com/ashep/esp-lib/errors"
)

// Component is the value of the "component" field on client log events.
const Component = "aespl_http_client"

// LogFormat selects how log events are written.
type LogFormat string

const (
	LogFormatConsole LogFormat = "console"
	LogFormatJSON    LogFormat = "json"
)

// LogConfig configures the client logger.
type LogConfig struct {
	Level  string    `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// ParseLogFormat parses "console" or "json". Empty means console.
func ParseLogFormat(f LogFormat) (LogFormat, error) {
	switch LogFormat(strings.ToLower(string(f))) {
	case "", LogFormatConsole:
		return LogFormatConsole, nil
	case LogFormatJSON:
		return LogFormatJSON, nil
	default:
		return "", httperrors.NewInvalidArgumentError(fmt.Sprintf("unknown log format %q", f))
	}
}

// ParseLogLevel parses a zerolog level name. Empty means info.
func ParseLogLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, httperrors.NewInvalidArgumentError(fmt.Sprintf("unknown log level %q", s))
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w. Invalid settings fall back to
// info level and console output.
func NewLogger(cfg LogConfig, w io.Writer) zerolog.Logger {
	lvl, err := ParseLogLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	format, _ := ParseLogFormat(cfg.Format)
	if format == LogFormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", Component).Logger()
}
