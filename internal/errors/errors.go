// Package errors provides the typed errors expel tasks return.
//
// Every failure a task can hit belongs to one Kind. The kind decides how the
// failure is reported; all of them end the process with exit code 1.
//
// Example usage:
//
//	if !dirExists(buildDir) {
//		return errors.NewMissingPrerequisite("build output not found, run 'expel build' first", nil)
//	}
//
//	exitCode := errors.GetExitCode(err)
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// KindRuntime is any failure that has no more specific kind.
	KindRuntime Kind = iota
	// KindMissingPrerequisite means something a task needs is absent.
	KindMissingPrerequisite
	// KindChildProcess means the container engine or a copy failed.
	KindChildProcess
	// KindUnknownTask means the task name matched nothing in the registry.
	KindUnknownTask
	// KindNotImplemented means the task is disabled in this configuration.
	KindNotImplemented
	// KindConfig means the configuration could not be loaded or is invalid.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindMissingPrerequisite:
		return "missing prerequisite"
	case KindChildProcess:
		return "child process"
	case KindUnknownTask:
		return "unknown task"
	case KindNotImplemented:
		return "not implemented"
	case KindConfig:
		return "config"
	default:
		return "runtime"
	}
}

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap implements the error unwrapping interface for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind.
func New(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func NewRuntime(msg string, cause error) error {
	return New(KindRuntime, msg, cause)
}

func NewMissingPrerequisite(msg string, cause error) error {
	return New(KindMissingPrerequisite, msg, cause)
}

func NewChildProcess(msg string, cause error) error {
	return New(KindChildProcess, msg, cause)
}

func NewUnknownTask(name string) error {
	return New(KindUnknownTask, fmt.Sprintf("unknown task %q", name), nil)
}

func NewNotImplemented(msg string) error {
	return New(KindNotImplemented, msg, nil)
}

func NewConfig(msg string, cause error) error {
	return New(KindConfig, msg, cause)
}

// KindOf returns the kind of the first Error in err's chain.
// Errors that carry no kind are KindRuntime.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRuntime
}

// Is reports whether err's chain contains an Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// GetExitCode extracts the process exit code from an error.
// Returns 0 for nil and 1 for every failure.
func GetExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
