// Package wonkerr defines the domain error taxonomy that the query
// router pattern-matches on to decide between fallback, retry, and
// surfacing to the caller.
package wonkerr

import (
	"errors"
	"fmt"
)

// Kind identifies which row of the error-handling table an error belongs
// to, independent of its wrapped message.
type Kind int

const (
	KindUnknown Kind = iota
	NoIndex
	QueryFailed
	ParseError
	IoError
	FileTooLarge
	UnsupportedLanguage
	DaemonAlreadyRunning
	StalePid
	UsageError
)

// Exit codes per the external-interface contract.
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Error is the unified application error. It carries a Kind for
// pattern-matching and wraps the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// ExitCode returns the process exit code for an error per §6's contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == UsageError {
		return ExitUsage
	}
	return ExitError
}

// Hint returns an optional human-readable suggestion for common error
// kinds, or "" when no specific guidance applies.
func Hint(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	switch e.Kind {
	case NoIndex:
		return "run `wonk init` to build an index for this repository"
	case QueryFailed:
		return "the index may be corrupt; try `wonk init` to rebuild it"
	case UnsupportedLanguage:
		return "this file type has no grammar; results are text-search only"
	case StalePid:
		return "the daemon's PID file was stale and has been removed"
	default:
		return ""
	}
}
