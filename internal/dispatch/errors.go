package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes are part of the CLI contract; scripts branch on them.
const (
	ExitOK                 = 0
	ExitInternal           = 1
	ExitUnrecognized       = 2
	ExitInvalidArgument    = 3
	ExitPermissionRequired = 4
	ExitNoProjectSelected  = 5
	ExitAutomationFailed   = 6
	ExitStateNotSaved      = 7
)

var (
	ErrInternal           = errors.New("internal error")
	ErrUnrecognized       = errors.New("unrecognized action")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPermissionRequired = errors.New("permission required")
	ErrNoProjectSelected  = errors.New("no project selected")
	ErrAutomationFailed   = errors.New("automation failed")
	ErrStateNotSaved      = errors.New("session state not saved")
)

// Error is the only error type that leaves the dispatcher. Kind is one of the
// sentinels above.
type Error struct {
	Kind    error
	Message string
	// Hint tells the user what to do next, e.g. "run `xcf grant` first".
	Hint string
	Err  error
}

func (e *Error) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return e.Message + "; " + e.Hint
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, hint, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Hint: hint}
}

// ExitCode maps an Execute result to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUnrecognized):
		return ExitUnrecognized
	case errors.Is(err, ErrInvalidArgument):
		return ExitInvalidArgument
	case errors.Is(err, ErrPermissionRequired):
		return ExitPermissionRequired
	case errors.Is(err, ErrNoProjectSelected):
		return ExitNoProjectSelected
	case errors.Is(err, ErrAutomationFailed):
		return ExitAutomationFailed
	case errors.Is(err, ErrStateNotSaved):
		return ExitStateNotSaved
	default:
		return ExitInternal
	}
}

// ExitCodesText documents the exit codes for the help screen.
func ExitCodesText() string {
	rows := []struct {
		code int
		desc string
	}{
		{ExitOK, "success"},
		{ExitInternal, "unexpected internal failure"},
		{ExitUnrecognized, "unrecognized action"},
		{ExitInvalidArgument, "invalid or missing argument"},
		{ExitPermissionRequired, "permission required (run grant)"},
		{ExitNoProjectSelected, "no project selected (run select <n>)"},
		{ExitAutomationFailed, "build or run failed"},
		{ExitStateNotSaved, "action succeeded but session state could not be saved"},
	}

	var b strings.Builder
	b.WriteString("Exit codes:\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "  %d  %s\n", r.code, r.desc)
	}
	return b.String()
}
