package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a timestamped JSON logger on stdout.
func NewLogger(level string) zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(parseLevel(level))
}

// NewConsoleLogger writes human readable lines, used when the flow runs in a terminal.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).With().Timestamp().Logger().Level(parseLevel(level))
}

// NewLoggerFor picks the writer from the configured format ("json" or "console").
// Logs go to stderr in console mode so stdout carries only the flow output.
func NewLoggerFor(format, level string) zerolog.Logger {
	if strings.EqualFold(format, "json") {
		return NewLogger(level)
	}
	return NewConsoleLogger(os.Stderr, level)
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return lvl
}
