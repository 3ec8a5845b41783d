package svcmgr

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by service manager operations
var (
	// ErrUnsupported indicates the backend or level is not available on this host
	ErrUnsupported = errors.New("svcmgr: unsupported")

	// ErrInvalidConfiguration indicates a definition or override was rejected
	ErrInvalidConfiguration = errors.New("svcmgr: invalid configuration")

	// ErrNotInstalled indicates the service definition does not exist
	ErrNotInstalled = errors.New("svcmgr: service not installed")

	// ErrInvalidLabel indicates a label could not be parsed
	ErrInvalidLabel = errors.New("svcmgr: invalid service label")
)

// noOutputMessage is reported when a failed command printed nothing
const noOutputMessage = "failed to execute command with no output"

// OpError represents an error from a service manager operation
type OpError struct {
	// Kind is the backend that failed
	Kind ServiceManagerKind
	// Op is the operation that failed
	Op Operation
	// Label is the qualified name of the service involved
	Label string
	// Err is the underlying error
	Err error
}

// Error returns a formatted error message
func (e *OpError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %q: %v", e.Kind, e.Op, e.Label, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *OpError) Unwrap() error {
	return e.Err
}

// wrapOp wraps err in an OpError, passing nil through
func wrapOp(kind ServiceManagerKind, op Operation, label ServiceLabel, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Kind: kind, Op: op, Label: label.QualifiedName(), Err: err}
}

// CommandError reports a native command that exited unsuccessfully
type CommandError struct {
	// Name is the executable that was run
	Name string
	// Args are the arguments it was run with
	Args []string
	// ExitCode is the process exit code, -1 when killed by a signal
	ExitCode int
	// Output is the trimmed stderr, or stdout when stderr was empty
	Output string
}

// Error returns a formatted error message
func (e *CommandError) Error() string {
	msg := e.Output
	if msg == "" {
		msg = noOutputMessage
	}
	cmd := e.Name
	if len(e.Args) > 0 {
		cmd += " " + e.Args[0]
	}
	return fmt.Sprintf("%s: command failed with exit code %d: %s", cmd, e.ExitCode, msg)
}

// newCommandError builds a CommandError from a finished command
func newCommandError(cmd Command, out *Output) *CommandError {
	return &CommandError{
		Name:     cmd.Name,
		Args:     cmd.Args,
		ExitCode: out.ExitCode,
		Output:   out.Message(),
	}
}

// unsupportedLevel is returned by backends without per-user services
func unsupportedLevel(kind ServiceManagerKind, level ServiceLevel) error {
	return &OpError{
		Kind: kind,
		Op:   OpSetLevel,
		Err:  fmt.Errorf("%w: %s level is not supported", ErrUnsupported, level),
	}
}

// IsNotInstalled reports whether err means the service does not exist
func IsNotInstalled(err error) bool {
	return errors.Is(err, ErrNotInstalled)
}

// IsUnsupported reports whether err means the backend or level is unavailable
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// messageOf returns trimmed text, preferring stderr over stdout
func messageOf(stdout, stderr []byte) string {
	if msg := strings.TrimSpace(string(stderr)); msg != "" {
		return msg
	}
	return strings.TrimSpace(string(stdout))
}
