// Package log provides the leveled, printf-style logging sink used
// throughout the server, in the shape jackal's own log package exposes
// (Debugf/Infof/Warnf/Errorf/Fatalf), backed by zerolog's console writer.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
	With().Timestamp().Logger()

// SetLevel adjusts the minimum level emitted by the package logger.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Debugf logs a debug-level message.
func Debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}

// Infof logs an info-level message.
func Infof(format string, args ...interface{}) {
	logger.Info().Msgf(format, args...)
}

// Warnf logs a warning-level message.
func Warnf(format string, args ...interface{}) {
	logger.Warn().Msgf(format, args...)
}

// Errorf logs an error-level message.
func Errorf(format string, args ...interface{}) {
	logger.Error().Msgf(format, args...)
}

// Error logs err at error level if non-nil.
func Error(err error) {
	if err == nil {
		return
	}
	logger.Error().Msg(err.Error())
}

// Fatalf logs a fatal-level message then exits the process.
func Fatalf(format string, args ...interface{}) {
	logger.Fatal().Msgf(format, args...)
}
