// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Setup sets the level and formatter of the standard logger. format is
// "text" or "json"; an empty format means text.
func Setup(level, format string) error {
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var formatter log.Formatter
	switch format {
	case "", "text":
		formatter = &log.TextFormatter{FullTimestamp: true}
	case "json":
		formatter = &log.JSONFormatter{}
	default:
		return fmt.Errorf("invalid log format %q (must be 'text' or 'json')", format)
	}

	log.SetLevel(lvl)
	log.SetFormatter(formatter)
	return nil
}

// SetOutput redirects the standard logger, typically to stderr so that
// command output on stdout stays machine readable.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
