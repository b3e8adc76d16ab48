package config

// This file binds CLI flags to Config. Every command shares the display
// flags; command-specific flags are added on top. Negated flags (--no-color)
// are applied after parsing so Config defaults hold unless set.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"
)

// envPrefix namespaces every environment variable a flag can be read from.
const envPrefix = "PNWTOOLS_"

// Binder owns the flag destinations for one Config.
type Binder struct {
	cfg     *Config
	negated negatedFlags
}

// negatedFlags holds boolean flags that are applied after parsing.
type negatedFlags struct {
	forceColor bool
	noColor    bool
}

// NewBinder returns a Binder that writes parsed flag values into cfg.
func NewBinder(cfg *Config) *Binder {
	return &Binder{cfg: cfg}
}

func env(name string) []string { return []string{envPrefix + name} }

// DisplayFlags registers --verbose, --color, --no-color and --log.
func (b *Binder) DisplayFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "verbose output", EnvVars: env("VERBOSE"), Destination: &b.cfg.Verbose},
		&cli.BoolFlag{Name: "color", Usage: "force colored logs", Destination: &b.negated.forceColor},
		&cli.BoolFlag{Name: "no-color", Usage: "disable colored logs", EnvVars: env("NO_COLOR"), Destination: &b.negated.noColor},
		&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Usage: "append JSON logs to `FILE`", EnvVars: env("LOG"), Destination: &b.cfg.LogFile},
	}
}

// RenameFlags registers the rename-files flags.
func (b *Binder) RenameFlags() []cli.Flag {
	return append(b.DisplayFlags(),
		&cli.BoolFlag{Name: "dry-run", Aliases: []string{"d"}, Usage: "preview names; do not rename or write a log", Destination: &b.cfg.DryRun},
		&cli.BoolFlag{Name: "keep-log", Usage: "archive the rename log on undo instead of deleting it", EnvVars: env("KEEP_LOG"), Destination: &b.cfg.KeepLog},
		b.minYearFlag(),
	)
}

// StationFlags registers the get-station-info flags.
func (b *Binder) StationFlags() []cli.Flag {
	return append(b.DisplayFlags(), b.minYearFlag())
}

// TagFlags registers the check-tags flags.
func (b *Binder) TagFlags() []cli.Flag {
	return append(b.DisplayFlags(),
		&cli.BoolFlag{Name: "json", Usage: "print the tag summary as JSON", Destination: &b.cfg.JSON},
	)
}

// ReviewFlags registers the make-wav-review-file flags.
func (b *Binder) ReviewFlags() []cli.Flag {
	return b.DisplayFlags()
}

func (b *Binder) minYearFlag() cli.Flag {
	return &cli.IntFlag{
		Name:        "min-year",
		Usage:       "ignore recording dates before this year (unset ARU clocks)",
		Value:       b.cfg.MinValidYear,
		EnvVars:     env("MIN_YEAR"),
		Destination: &b.cfg.MinValidYear,
	}
}

// Apply copies negated flags and positional arguments into the Config. The
// first positional argument is the target; each following argument is parsed
// as a whole number of seconds into the matching pointer of extra.
func (b *Binder) Apply(c *cli.Context, extra ...*int) error {
	applyNegatedFlags(b.cfg, &b.negated)

	args := c.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: missing target argument", ErrInvalidTargetPath)
	}
	if len(args) > 1+len(extra) {
		return fmt.Errorf("too many arguments (got %d, want at most %d)", len(args), 1+len(extra))
	}
	b.cfg.Target = NormalizeDirArg(args[0])

	for i, raw := range args[1:] {
		n, err := parseInt(raw, c.Command.ArgsUsage)
		if err != nil {
			return err
		}
		*extra[i] = n
	}
	return nil
}

// applyNegatedFlags resolves --color / --no-color into ColorMode.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parseInt parses a whole-number argument; returns a clear error on failure.
func parseInt(s, usage string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a whole number of seconds (usage: %s)", s, usage)
	}
	return n, nil
}
