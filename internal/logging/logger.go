// Package logging provides the leveled console logger used by every command.
//
// Messages are printf-style. Console output goes to stdout (errors to
// stderr) in a human-readable form; when a log file is configured the same
// events are appended to it as JSON lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/pnwtools/pnwtools/internal/config"
	"github.com/pnwtools/pnwtools/internal/term"
)

const timeFormat = "2006-01-02 15:04:05"

// Logger provides leveled, optionally colored logging with optional file sink.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// NewLogger initializes colors from cfg and optionally opens the log file.
// Call Close() when done.
func NewLogger(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	noColor := !term.Enabled()

	var out io.Writer = splitWriter{
		out: console(os.Stdout, noColor),
		err: console(os.Stderr, noColor),
	}

	l := &Logger{}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		out = zerolog.MultiLevelWriter(out, f)
	}
	l.zl = zerolog.New(out).Level(level(cfg.Verbose)).With().Timestamp().Logger()
	return l, nil
}

// New returns a logger writing uncolored console lines to w. Used by tests
// and by callers that capture output.
func New(w io.Writer, verbose bool) *Logger {
	zl := zerolog.New(console(w, true)).Level(level(verbose)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func level(verbose bool) zerolog.Level {
	if verbose {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func console(w io.Writer, noColor bool) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: timeFormat}
}

// splitWriter routes error-and-above events to stderr.
type splitWriter struct {
	out io.Writer
	err io.Writer
}

func (s splitWriter) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s splitWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l >= zerolog.ErrorLevel {
		return s.err.Write(p)
	}
	return s.out.Write(p)
}

// With returns a child logger that adds key=value to every event. The child
// shares the parent's file sink; only the parent should be closed.
func (l *Logger) With(key, value string) *Logger {
	return &Logger{zl: l.zl.With().Str(key, value).Logger()}
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Info logs at INFO level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.zl.Info().Msg(fmt.Sprintf(format, args...))
}

// Success logs a completed step at INFO level, tagged status=ok.
func (l *Logger) Success(format string, args ...interface{}) {
	l.zl.Info().Str("status", "ok").Msg(fmt.Sprintf(format, args...))
}

// Warn logs at WARN level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.zl.Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs at ERROR level, to stderr.
func (l *Logger) Error(format string, args ...interface{}) {
	l.zl.Error().Msg(fmt.Sprintf(format, args...))
}

// Debug logs at DEBUG level; dropped unless the logger is verbose.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msg(fmt.Sprintf(format, args...))
}

// Since is a convenience for duration fields in summaries.
func Since(start time.Time) time.Duration {
	return time.Since(start).Round(time.Millisecond)
}
