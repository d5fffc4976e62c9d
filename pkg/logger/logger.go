package logger

import (
	"context"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/mattn/go-isatty"
)

// Logger with explicit levels and optional color support.
//
// Loggers double as traditional loggers (each Infof is a discrete entry that
// gets a trailing newline) and as Writers (each Write may carry a fragment of
// a larger stream, with no newline of its own). Implementations that bridge
// the two worlds append the newline on the discrete-message side before
// handing the bytes to Write.
type Logger interface {
	// Plumbing detail that's mostly of interest when debugging gantry itself.
	Debugf(format string, a ...interface{})

	// Information a user might not want on every run but will want when
	// digging into their Gantryfile, build recipe, or cluster setup.
	Verbosef(format string, a ...interface{})

	// Information we always want to show.
	Infof(format string, a ...interface{})

	// Problems that don't stop the run.
	Warnf(format string, a ...interface{})

	// Halting errors.
	Errorf(format string, a ...interface{})

	Write(level Level, bytes []byte)

	// Writer returns an io.Writer that logs at the given level, e.g. for
	// hooking up subprocess output.
	Writer(level Level) io.Writer

	Level() Level

	SupportsColor() bool

	WithFields(fields Fields) Logger
}

type Level struct {
	severity int32
}

// ShouldDisplay reports whether a logger at level l should display
// messages logged at level log.
func (l Level) ShouldDisplay(log Level) bool {
	return l.severity <= log.severity
}

func (l Level) AsSevereAs(log Level) bool {
	return l.severity >= log.severity
}

var (
	NoneLvl    = Level{severity: 0}
	DebugLvl   = Level{severity: 100}
	VerboseLvl = Level{severity: 200}
	InfoLvl    = Level{severity: 300}
	WarnLvl    = Level{severity: 400}
	ErrorLvl   = Level{severity: 500}
)

const loggerContextKey = "Logger"

func Get(ctx context.Context) Logger {
	val := ctx.Value(loggerContextKey)

	if val != nil {
		return val.(Logger)
	}

	// No logger found in context, something is wrong.
	panic("Called logger.Get(ctx) on a context with no logger attached!")
}

func NewLogger(minLevel Level, writer io.Writer) Logger {
	// adapted from fatih/color
	supportsColor := true
	if os.Getenv("TERM") == "dumb" {
		supportsColor = false
	} else {
		file, isFile := writer.(*os.File)
		if isFile {
			fd := file.Fd()
			supportsColor = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		}
	}
	return NewFuncLogger(supportsColor, minLevel, func(level Level, fields Fields, bytes []byte) error {
		_, err := writer.Write(bytes)
		return err
	})
}

// NewTestLogger logs everything to the given writer, with colors off.
func NewTestLogger(writer io.Writer) Logger {
	return NewFuncLogger(false, DebugLvl, func(level Level, fields Fields, bytes []byte) error {
		_, err := writer.Write(bytes)
		return err
	})
}

func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

func getColor(l Logger, c color.Attribute) *color.Color {
	color := color.New(c)
	if !l.SupportsColor() {
		color.DisableColor()
	}
	return color
}

func Yellow(l Logger) *color.Color { return getColor(l, color.FgYellow) }
func Green(l Logger) *color.Color  { return getColor(l, color.FgGreen) }
func Red(l Logger) *color.Color    { return getColor(l, color.FgRed) }

// CtxWithForkedOutput returns a context containing a logger that forks all
// of its output to both the parent context's logger and to the given
// io.Writer.
func CtxWithForkedOutput(ctx context.Context, writer io.Writer) context.Context {
	l := Get(ctx)

	write := func(level Level, fields Fields, b []byte) error {
		l.Write(level, b)
		if l.Level().ShouldDisplay(level) {
			b = append([]byte{}, b...)
			_, err := writer.Write(b)
			if err != nil {
				return err
			}
		}
		return nil
	}

	forkedLogger := NewFuncLogger(l.SupportsColor(), l.Level(), write)
	return WithLogger(ctx, forkedLogger)
}
