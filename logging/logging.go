// Package logging builds the slog logger shared by the commands.
package logging

import (
	"log/slog"
	"os"
)

// New returns a logger writing to f: text when f is a terminal, JSON
// otherwise. verbose enables debug records.
func New(f *os.File, verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(f) {
		handler = slog.NewTextHandler(f, opts)
	} else {
		handler = slog.NewJSONHandler(f, opts)
	}
	return slog.New(handler), level
}

// Setup installs New(f, verbose) as the default logger.
func Setup(f *os.File, verbose bool) *slog.LevelVar {
	logger, level := New(f, verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
	return level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
