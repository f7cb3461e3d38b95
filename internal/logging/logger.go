// Package logging builds the structured loggers used by the command-line
// tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// New creates a [log.Logger] writing to w (stderr when nil) at level, with
// timestamps.
func New(w io.Writer, level log.Level) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true})
	l.SetLevel(level)
	return l
}

// WithRun returns a child logger tagging every entry with the run ID.
func WithRun(l *log.Logger, runID string) *log.Logger {
	return l.With("run", runID)
}

// ParseLevel maps a config value (debug, info, warn, error) to a [log.Level].
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", s)
}

// GenerateID generates a new v4 [uuid.UUID] as a string, used as a run ID.
func GenerateID() string {
	return uuid.New().String()
}
