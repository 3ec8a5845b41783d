package svcmgr

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
)

// fakeRunner records every command and replays scripted outputs in order.
// Once the script is exhausted every command succeeds with no output.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []Command
	outputs []*Output
	err     error
}

func newFakeRunner(outputs ...*Output) *fakeRunner {
	return &fakeRunner{outputs: outputs}
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) (*Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.outputs) == 0 {
		return &Output{}, nil
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

// argv returns each recorded call as name followed by its arguments
func (f *fakeRunner) argv() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	res := make([][]string, len(f.calls))
	for i, c := range f.calls {
		res[i] = append([]string{c.Name}, c.Args...)
	}
	return res
}

// exited builds an Output with the given exit code and text
func exited(code int, stdout, stderr string) *Output {
	return &Output{ExitCode: code, Stdout: []byte(stdout), Stderr: []byte(stderr)}
}

// quietLogger discards everything
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureLogger records warnings and above into buf
func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

var echoLabel = MustParseServiceLabel("com.example.echo")

// echoInstall is the install descriptor used across backend tests
func echoInstall() InstallCtx {
	return InstallCtx{
		Label:   echoLabel,
		Program: "/usr/local/bin/svcmgr",
		Args:    []string{"listen", "127.0.0.1:8088"},
	}
}
