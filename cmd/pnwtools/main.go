// Command pnwtools is the CLI entrypoint for the ARU recording archive
// utilities.
//
// Each command takes a target directory (a file for check-tags), validates
// configuration and paths, and runs one pipeline over it. Exit status is 1
// only when the command could not run: a bad target or argument, a review
// sheet missing a required column, or an output table that cannot be
// written. Per-file problems are reported in the summary.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/pnwtools/pnwtools/internal/config"
	"github.com/pnwtools/pnwtools/internal/display"
	"github.com/pnwtools/pnwtools/internal/logging"
	"github.com/pnwtools/pnwtools/internal/pipeline"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// reported marks an error that was already logged.
type reported struct{ error }

func main() {
	os.Exit(run(os.Args))
}

type command func(*pipeline.Runner, context.Context) (pipeline.RunStats, error)

func run(args []string) int {
	// The logger doesn't exist until a command has parsed its flags, so
	// bootstrap errors go straight to stderr.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "pnwtools: loading .env: %v\n", err)
		return 1
	}

	cfg := config.DefaultConfig()
	b := config.NewBinder(&cfg)

	app := &cli.App{
		Name:    "pnwtools",
		Usage:   "manage ARU bioacoustic recording archives",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Commands: []*cli.Command{
			{
				Name:      "rename-files",
				Usage:     "give recordings canonical <prefix>_<timestamp> names, or undo the last rename",
				ArgsUsage: "<dir>",
				Flags:     b.RenameFlags(),
				Action:    action(b, &cfg, (*pipeline.Runner).RenameFiles),
			},
			{
				Name:      "get-station-info",
				Usage:     "write per-station file counts, date ranges and serial numbers",
				ArgsUsage: "<dir>",
				Flags:     b.StationFlags(),
				Action:    action(b, &cfg, (*pipeline.Runner).StationInfo),
			},
			{
				Name:      "check-tags",
				Usage:     "tally the MANUAL_ID tags of a review sheet",
				ArgsUsage: "<file>",
				Flags:     b.TagFlags(),
				Action:    action(b, &cfg, (*pipeline.Runner).CheckTags),
			},
			{
				Name:      "make-wav-review-file",
				Usage:     "write a review sheet splitting every recording into clips",
				ArgsUsage: "<dir> [clip_length] [interval]",
				Flags:     b.ReviewFlags(),
				Action:    action(b, &cfg, (*pipeline.Runner).ReviewFile, &cfg.ClipLength, &cfg.Interval),
			},
		},
		// Errors are printed once, below.
		ExitErrHandler: func(*cli.Context, error) {},
	}

	if err := app.Run(args); err != nil {
		var rep reported
		if !errors.As(err, &rep) {
			fmt.Fprintf(os.Stderr, "pnwtools: %v\n", err)
		}
		return 1
	}
	return 0
}

func action(b *config.Binder, cfg *config.Config, cmd command, extra ...*int) cli.ActionFunc {
	return func(c *cli.Context) error {
		if err := b.Apply(c, extra...); err != nil {
			return fmt.Errorf("%s: %w (usage: %s %s)", c.Command.Name, err, c.Command.Name, c.Command.ArgsUsage)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log, err := logging.NewLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Close()

		// Logger available: all output goes through log from here on.
		var banner io.Writer = os.Stdout
		if cfg.JSON {
			banner = os.Stderr
		}
		display.PrintBanner(banner, version)

		target, err := absPath(cfg.Target)
		if err != nil {
			log.Error("Target not found: %s", cfg.Target)
			return reported{fmt.Errorf("%w: %v", config.ErrInvalidTargetPath, err)}
		}
		cfg.Target = target
		log.Debug("Target: %s", target)

		// Cancel on SIGINT/SIGTERM so a batch stops between files with
		// everything done so far recorded.
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				log.Warn("Received interrupt, finishing current file…")
				cancel()
			case <-ctx.Done():
			}
		}()

		if _, err := cmd(pipeline.New(cfg, log), ctx); err != nil {
			log.Error("%v", err)
			return reported{err}
		}
		return nil
	}
}

// absPath returns the absolute, symlink-resolved target path.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
