package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const tuiLogFile = "autotrader.log"

// configureLogging sets the global level and writer. With the TUI on the
// terminal belongs to the dashboard, so logs go to a file instead.
func configureLogging(level string, tuiEnabled bool) func() {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	closeFn := func() {}
	if tuiEnabled {
		f, err := os.OpenFile(tuiLogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			out = io.Discard
		} else {
			out = f
			closeFn = func() { _ = f.Close() }
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return closeFn
}
