// Package logging wraps zerolog with a lumberjack-backed rotating file
// sink, giving every other package the same package-level Init/Debug/
// Info/Warn/Error surface the original tool's hand-rolled logger.go
// exposed, minus its hand-rolled buffering and rotation: lumberjack
// already does both, correctly.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu     sync.RWMutex
	logger zerolog.Logger

	// broadcast, when set, receives every line logged through Debugf,
	// Infof, Warnf or Errorf after it is written; lines written through
	// a For logger are not passed to it.
	broadcast func(level, message string)
)

// Options configures Init.
type Options struct {
	// Dir is the directory rotated log files are written to. It is
	// created if missing.
	Dir string
	// FileName is the base name of the active log file, rotated by
	// lumberjack (e.g. "lalikan.log").
	FileName string
	// RetentionDays bounds how long rotated files are kept; 0 disables
	// cleanup.
	RetentionDays int
	// Level is the minimum level that reaches either sink.
	Level zerolog.Level
	// Console additionally mirrors output to stdout in human-readable
	// form, for interactive use (cmd/lalikan's default).
	Console bool
}

// Init wires the package-level logger. It is safe to call again to
// reconfigure (e.g. after reloading configuration).
func Init(opts Options) error {
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return err
		}
	}

	var writers []io.Writer
	if opts.Dir != "" && opts.FileName != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename: opts.Dir + string(os.PathSeparator) + opts.FileName,
			MaxAge:   opts.RetentionDays,
			Compress: true,
		})
	}
	if opts.Console || len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	var out io.Writer
	switch len(writers) {
	case 1:
		out = writers[0]
	default:
		out = zerolog.MultiLevelWriter(writers...)
	}

	mu.Lock()
	logger = zerolog.New(out).Level(opts.Level).With().Timestamp().Logger()
	mu.Unlock()

	return nil
}

// SetBroadcast installs a sink notified with every line logged through
// Debugf, Infof, Warnf or Errorf. Passing nil removes it.
func SetBroadcast(fn func(level, message string)) {
	mu.Lock()
	broadcast = fn
	mu.Unlock()
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func notify(level, message string) {
	mu.RLock()
	fn := broadcast
	mu.RUnlock()
	if fn != nil {
		fn(level, message)
	}
}

// For is a job-scoped logger carrying a "job" field, the way the
// original tool prefixed log lines with the section name being
// processed.
func For(job string) zerolog.Logger {
	return current().With().Str("job", job).Logger()
}

func Debugf(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
	notify("DEBUG", sprintf(format, v...))
}

func Infof(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
	notify("INFO", sprintf(format, v...))
}

func Warnf(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
	notify("WARN", sprintf(format, v...))
}

func Errorf(format string, v ...interface{}) {
	current().Error().Msgf(format, v...)
	notify("ERROR", sprintf(format, v...))
}

func sprintf(format string, v ...interface{}) string {
	return fmt.Sprintf(format, v...)
}
