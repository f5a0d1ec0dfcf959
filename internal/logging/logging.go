// Package logging holds the shared zerolog setup for micromatch binaries.
// The core, feed and bridge packages log through the global
// github.com/rs/zerolog/log logger directly, the same way the teacher's
// worker and server code does; this package only decides how that global
// logger is configured for a given entry point.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Configure installs a console-formatted global logger writing to out, at
// level. Intended to be called once from a command's main().
func Configure(out io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.SetGlobalLevel(level)
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// LevelFromEnv reads LOG_LEVEL (debug/info/warn/error), defaulting to info
// when unset or unrecognized.
func LevelFromEnv() zerolog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
