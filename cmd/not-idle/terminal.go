package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// enterRawMode puts f in raw mode when it is a terminal, so keystrokes reach
// the wrapped command unprocessed. The returned function restores the
// previous mode and is safe to call more than once.
func enterRawMode(f *os.File, logger zerolog.Logger) func() {
	if !isatty.IsTerminal(f.Fd()) {
		return func() {}
	}

	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		logger.Debug().Err(err).Msg("failed to enter raw mode")
		return func() {}
	}

	restored := false
	return func() {
		if restored {
			return
		}
		restored = true
		if err := term.Restore(int(f.Fd()), state); err != nil {
			logger.Debug().Err(err).Msg("failed to restore terminal")
		}
	}
}
