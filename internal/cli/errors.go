package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
)

var (
	// ErrUsage means no actionable command was recognized.
	ErrUsage = errors.New("undefined or erroneous arguments")

	// ErrConfigMissing means a queue command was given without --configs.
	ErrConfigMissing = errors.New("option requires config path")

	// ErrPagerFailed means the help pager could not be started.
	ErrPagerFailed = errors.New("failed to start pager")
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitCode maps a command error to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

func writeWarning(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s: %s\n", label(w, "warning"), msg)
}

func writeError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s: %s\n", label(w, "error"), err)
}

// label colours the prefix red when w is a terminal.
func label(w io.Writer, s string) string {
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return "\x1b[31m" + s + "\x1b[0m"
	}
	return s
}
