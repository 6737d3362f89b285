package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Config holds logging configuration
type Config struct {
	Level      string // debug, info, warn or error
	JSONOutput bool
	Output     io.Writer // defaults to stderr so stdout stays clean for reports
}

// ParseLevel maps a configured level name to a zerolog level. Unknown or
// empty names mean info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// Init configures the global logger
func Init(cfg Config) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if !cfg.JSONOutput {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(output).With().Timestamp().Logger()
}

// WithComponent creates a child logger for one package of the job
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// ForRun scopes a component logger to one reconciliation run
func ForRun(component, runID string) zerolog.Logger {
	return Logger.With().Str("component", component).Str("run_id", runID).Logger()
}

// ForView adds the view being worked on to l
func ForView(l zerolog.Logger, view string) zerolog.Logger {
	return l.With().Str("view", view).Logger()
}

// ForDay adds the view and the calendar day being checked to l
func ForDay(l zerolog.Logger, view string, day fmt.Stringer) zerolog.Logger {
	return l.With().Str("view", view).Stringer("day", day).Logger()
}
