// Package telemetry wires structured logging (zerolog) and metrics
// (prometheus) the way every service in this engine reports on itself:
// a process-wide logger plus a named-fields metrics registry reached
// via short helper functions.
package telemetry

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	// Sane default so packages that log before Init (e.g. in tests) do
	// not panic on a zero-value logger.
	Init("info", "console", "arb-engine", "")
}

// Init configures the global logger. format is "console" (human,
// default) or "json" (production). service/shardID bind as fields on
// every subsequent log line.
func Init(levelName, format, service, shardID string) {
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"

	var l zerolog.Logger
	if strings.EqualFold(format, "json") {
		l = zerolog.New(os.Stderr)
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	}

	ctx := l.With().Timestamp().Str("service", service)
	if shardID != "" {
		ctx = ctx.Str("shard_id", shardID)
	}
	logger = ctx.Logger().Level(ParseLevel(levelName))
}

// L returns the global logger.
func L() *zerolog.Logger { return &logger }

// ParseLevel converts a string level name to a zerolog.Level.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
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

func Infof(format string, args ...any)  { L().Info().Msgf(format, args...) }
func Warnf(format string, args ...any)  { L().Warn().Msgf(format, args...) }
func Errorf(format string, args ...any) { L().Error().Msgf(format, args...) }
func Debugf(format string, args ...any) { L().Debug().Msgf(format, args...) }
