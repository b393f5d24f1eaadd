package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// Logger writes leveled console output. The zero value logs warnings and
// errors to stderr and everything else nowhere.
type Logger struct {
	Verbose bool
	Debug   bool

	// Out receives info and debug lines. Nil means os.Stdout.
	Out io.Writer
	// Err receives warnings and errors. Nil means os.Stderr.
	Err io.Writer
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Out: io.Discard, Err: io.Discard}
}

// New returns a logger for the given verbosity flags.
func New(verbose, debug bool) *Logger {
	return &Logger{Verbose: verbose || debug, Debug: debug}
}

func levelLabel(i any) string {
	level, _ := i.(string)
	switch level {
	case zerolog.LevelInfoValue:
		return color.GreenString("[info]")
	case zerolog.LevelDebugValue:
		return color.CyanString("[debug]")
	case zerolog.LevelWarnValue:
		return color.YellowString("[warn]")
	case zerolog.LevelErrorValue:
		return color.RedString("[error]")
	default:
		return "[" + level + "]"
	}
}

func (l Logger) console(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{
		Out:         w,
		NoColor:     true,
		PartsOrder:  []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: levelLabel,
	})
}

func (l Logger) out() zerolog.Logger {
	if l.Out == nil {
		return l.console(os.Stdout)
	}
	return l.console(l.Out)
}

func (l Logger) err() zerolog.Logger {
	if l.Err == nil {
		return l.console(os.Stderr)
	}
	return l.console(l.Err)
}

// Infof is shown with --verbose or --debug.
func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose || l.Debug {
		zl := l.out()
		zl.Info().Msgf(msg, args...)
	}
}

// Debugf is shown only with --debug.
func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		zl := l.out()
		zl.Debug().Msgf(msg, args...)
	}
}

// Step records an engine step with structured fields. Shown only with --debug.
func (l Logger) Step(msg string, fields map[string]any) {
	if l.Debug {
		zl := l.out()
		zl.Debug().Fields(fields).Msg(msg)
	}
}

// Warnf is shown with --verbose or --debug.
func (l Logger) Warnf(msg string, args ...any) {
	if l.Verbose || l.Debug {
		zl := l.err()
		zl.Warn().Msgf(msg, args...)
	}
}

// WarnfAlways is for warnings the user must see regardless of verbosity.
func (l Logger) WarnfAlways(msg string, args ...any) {
	zl := l.err()
	zl.Warn().Msgf(msg, args...)
}

// Errorf is shown with --debug; user-facing errors are printed by the command.
func (l Logger) Errorf(msg string, args ...any) {
	if l.Debug {
		zl := l.err()
		zl.Error().Msgf(msg, args...)
	}
}

// ErrorfAndReturn logs like Errorf and returns the formatted error. %w verbs wrap.
func (l Logger) ErrorfAndReturn(msg string, args ...any) error {
	err := fmt.Errorf(msg, args...)
	l.Errorf("%s", err)
	return err
}
