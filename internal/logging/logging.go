// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Levels lists the accepted log level names
var Levels = []string{"debug", "info", "warn", "error"}

// Config selects the log output
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Init points the global logger at w with the configured format and level
func Init(cfg Config, w io.Writer) error {
	var logWriter io.Writer
	switch cfg.Format {
	case "", "text":
		logWriter = zerolog.ConsoleWriter{Out: w}
	case "json":
		logWriter = w
	default:
		return fmt.Errorf("unknown log format '%s' (supported: text, json)", cfg.Format)
	}

	name := cfg.Level
	if name == "" {
		name = zerolog.InfoLevel.String()
	}
	if !slices.Contains(Levels, name) {
		return fmt.Errorf("unknown log level '%s' (supported: %s)", cfg.Level, strings.Join(Levels, ", "))
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	log.Logger = log.Output(logWriter)
	return nil
}
