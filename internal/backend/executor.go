package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// CommandRunner is the interface for running commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error)
}

// ExecCommandRunner uses os/exec.
type ExecCommandRunner struct{}

// Run runs a command.
func (ExecCommandRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err = cmd.Run()
	return outBuf.Bytes(), errBuf.Bytes(), err
}

// Executor runs commands.
type Executor struct {
	runner     CommandRunner
	binaryPath string
	timeout    time.Duration
}

// NewExecutor creates an executor. binaryPath may be a bare command name,
// which is resolved against PATH.
func NewExecutor(binaryPath string, timeout time.Duration) (*Executor, error) {
	resolved, err := exec.LookPath(binaryPath)
	if err != nil {
		return nil, fmt.Errorf("binary not found: %w", err)
	}

	return &Executor{
		binaryPath: resolved,
		timeout:    timeout,
		runner:     ExecCommandRunner{},
	}, nil
}

// NewExecutorWithRunner creates an executor with a custom runner.
func NewExecutorWithRunner(binaryPath string, timeout time.Duration, runner CommandRunner) *Executor {
	return &Executor{
		binaryPath: binaryPath,
		timeout:    timeout,
		runner:     runner,
	}
}

// BinaryPath returns the executable the executor runs.
func (e *Executor) BinaryPath() string {
	return e.binaryPath
}

// Execute runs the command and returns output.
func (e *Executor) Execute(ctx context.Context, args []string, stdin io.Reader) (stdout, stderr []byte, err error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	return e.runner.Run(ctx, e.binaryPath, args, stdin)
}
