// Package sdlog is the simulation core's console logger: a handful of
// colored severity helpers writing to an io.Writer, grounded on the
// pack's own `github.com/fatih/color` idiom (package-level SprintFunc
// values applied to fmt.Fprintf, as in
// sunholo-data-ailang/internal/repl.Config's green/red/yellow/cyan
// helpers) rather than a structured logging library, since this
// module's own output is a handful of one-line diagnostics (cycle
// reports, RK4-downgrade warnings, bad-table errors) and never
// structured log records consumed by another system.
package sdlog

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	warnPrefix  = color.New(color.FgYellow, color.Bold).SprintFunc()
	errPrefix   = color.New(color.FgRed, color.Bold).SprintFunc()
	infoPrefix  = color.New(color.FgCyan).SprintFunc()
	dim         = color.New(color.Faint).SprintFunc()
)

// Logger writes leveled diagnostics to an underlying writer, defaulting
// to stderr.
type Logger struct {
	out io.Writer
}

func New(out io.Writer) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out}
}

// Default is the package-level logger used where a *Logger is not
// threaded explicitly (internal/sim's RK4-downgrade warning, mainly).
var Default = New(os.Stderr)

func (l *Logger) Warn(format string, args ...any) {
	fmt.Fprintf(l.out, "%s %s\n", warnPrefix("WARN"), fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	fmt.Fprintf(l.out, "%s %s\n", errPrefix("ERROR"), fmt.Sprintf(format, args...))
}

func (l *Logger) Info(format string, args ...any) {
	fmt.Fprintf(l.out, "%s %s\n", infoPrefix("INFO"), fmt.Sprintf(format, args...))
}

func (l *Logger) Detail(format string, args ...any) {
	fmt.Fprintf(l.out, "  %s\n", dim(fmt.Sprintf(format, args...)))
}
