// Package term decides whether console output is colored.
//
// [Configure] is called once during startup (from [logging.NewLogger]); the
// result is kept in a package-level flag because both logging and display
// need it.
package term

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/pnwtools/pnwtools/internal/config"
)

// Magenta and NC are the only escapes used outside the log writer (banner).
// Empty when colors are disabled.
var (
	Magenta = ""
	NC      = "" // Reset sequence.
)

// Configure resolves the color mode and sets the package-level escapes.
func Configure(mode config.ColorMode) {
	if resolve(mode) {
		Magenta = "\033[1;95m"
		NC = "\033[0m"
	} else {
		Magenta, NC = "", ""
	}
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return NC != "" }

// resolve determines whether colors should be enabled based on the configured
// mode, TTY detection, and the NO_COLOR env var (https://no-color.org).
func resolve(mode config.ColorMode) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default: // ColorAuto
		return IsTerminal(os.Stdout) &&
			os.Getenv("NO_COLOR") == "" &&
			strings.ToLower(os.Getenv("TERM")) != "dumb"
	}
}

// IsTerminal reports whether f is attached to a TTY.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
