// Package config holds runtime configuration: defaults, CLI flag binding, and
// validation.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidTargetPath is returned when the target directory or file cannot
// be used. It is fatal: nothing on disk has been touched when it is returned.
var ErrInvalidTargetPath = errors.New("invalid target path")

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Fixed file names written into the target directory.
const (
	RenameLogName   = "Rename_Log.csv"
	StationInfoName = "Station_Info.csv"
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by the bound CLI flags before being passed (by pointer) to
// packages that need it.
type Config struct {
	// Target is the directory (or, for check-tags, the file) given as the
	// first positional argument.
	Target string

	// Rename behavior.
	DryRun  bool // Plan and report only.
	KeepLog bool // Archive the rename log on undo instead of deleting it.

	// Station summary.
	MinValidYear int // Default: 2017. Earlier dates come from unset ARU clocks.

	// Review sheet segmentation, in seconds.
	ClipLength int // Default: 12.
	Interval   int // Default: 12.

	// Output.
	JSON bool // check-tags: print the summary as JSON.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path (JSON lines, appended).
}

// DefaultConfig returns a Config with the stock defaults.
func DefaultConfig() Config {
	return Config{
		DryRun:       false,
		KeepLog:      false,
		MinValidYear: 2017,
		ClipLength:   12,
		Interval:     12,
		ColorMode:    ColorAuto,
	}
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks enum and numeric fields and requires a target.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}
	if c.ClipLength <= 0 {
		return fmt.Errorf("clip length must be a positive number of seconds (got %d)", c.ClipLength)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be a positive number of seconds (got %d)", c.Interval)
	}
	if c.MinValidYear < 0 {
		return fmt.Errorf("minimum year must not be negative (got %d)", c.MinValidYear)
	}
	if c.Target == "" {
		return fmt.Errorf("%w: no target given", ErrInvalidTargetPath)
	}
	return nil
}

// ReportName returns "<base>_<suffix>" where base is the target directory's
// own name, the naming used for per-directory output tables.
func ReportName(targetDir, suffix string) string {
	base := filepath.Base(filepath.Clean(targetDir))
	if base == string(filepath.Separator) || base == "." {
		base = "pnwtools"
	}
	return base + "_" + suffix
}
