package svcmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
)

// Command is a native tool invocation
type Command struct {
	// Name is the executable, resolved through PATH when not absolute
	Name string
	// Args are the command line arguments
	Args []string
	// Dir is the working directory; empty inherits the caller's
	Dir string
}

// String returns the command line for logging
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Output is the captured result of a finished command
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the command exited with status zero
func (o *Output) Success() bool {
	return o.ExitCode == 0
}

// Message returns the trimmed stderr, or stdout when stderr is blank
func (o *Output) Message() string {
	return messageOf(o.Stdout, o.Stderr)
}

// Runner executes native commands. A non-zero exit is reported through
// Output.ExitCode; the error is reserved for commands that could not run.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Output, error)
}

// ExecRunner runs commands with os/exec. Stdin is the null device and
// stdout and stderr are captured separately. On Windows the output is
// decoded from the ANSI code page.
type ExecRunner struct{}

// Run executes the command and waits for it to finish
func (ExecRunner) Run(ctx context.Context, cmd Command) (*Output, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("run %s: %w", cmd.Name, ctxErr)
	}

	out := &Output{Stdout: decodeOutput(stdout.Bytes()), Stderr: decodeOutput(stderr.Bytes())}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, nil
		}
		return nil, fmt.Errorf("run %s: %w", cmd.Name, err)
	}
	return out, nil
}

// commandRunner bundles the runner and logger shared by the CLI driven backends
type commandRunner struct {
	runner Runner
	logger *slog.Logger
}

func (r commandRunner) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// run executes a command and returns its output without judging the exit code
func (r commandRunner) run(ctx context.Context, dir, name string, args ...string) (Command, *Output, error) {
	cmd := Command{Name: name, Args: args, Dir: dir}
	runner := r.runner
	if runner == nil {
		runner = ExecRunner{}
	}

	r.log().Debug("running native command", "command", cmd.String(), "dir", dir)
	out, err := runner.Run(ctx, cmd)
	if err != nil {
		return cmd, nil, err
	}
	if !out.Success() {
		r.log().Debug("native command failed",
			"command", cmd.String(),
			"exit_code", out.ExitCode,
			"output", out.Message())
	}
	return cmd, out, nil
}

// check executes a command and converts a non-zero exit into a CommandError
func (r commandRunner) check(ctx context.Context, dir, name string, args ...string) error {
	cmd, out, err := r.run(ctx, dir, name, args...)
	if err != nil {
		return err
	}
	if !out.Success() {
		return newCommandError(cmd, out)
	}
	return nil
}

// bestEffort executes a command whose failure is tolerated, logging it
func (r commandRunner) bestEffort(ctx context.Context, dir, name string, args ...string) {
	if err := r.check(ctx, dir, name, args...); err != nil {
		r.log().Debug("ignoring native command failure", "error", err)
	}
}

// lookPath reports whether a tool can be resolved. Only a missing binary
// is (false, nil); any other lookup failure is returned.
func lookPath(name string) (bool, error) {
	if _, err := exec.LookPath(name); err != nil {
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
