// SPDX-License-Identifier: MPL-2.0

package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// execAll runs the positional parameters as a single command.
const execAll = `"$@"`

type (
	// Runner executes a shell script with positional parameters and reports
	// the exit status. A non-nil error means the script could not run at
	// all; a failing command is reported only through the status.
	Runner interface {
		Run(ctx context.Context, script string, args ...string) (int, error)
	}

	// ShellRunner runs scripts in-process with mvdan/sh, so quoting and
	// variable expansion behave the same on every platform.
	ShellRunner struct {
		// Dir is the working directory. Empty means the current directory.
		Dir string
		// Env is appended to the inherited process environment.
		Env []string
		// Stdout and Stderr receive command output. Nil discards it.
		Stdout io.Writer
		Stderr io.Writer
	}
)

// Exec runs args as a single command through r.
func Exec(ctx context.Context, r Runner, args ...string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("no command given")
	}
	return r.Run(ctx, execAll, args...)
}

// Run implements Runner.
func (r *ShellRunner) Run(ctx context.Context, script string, args ...string) (int, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "script")
	if err != nil {
		return 1, fmt.Errorf("failed to parse script: %w", err)
	}

	stdout, stderr := r.Stdout, r.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	env := append(os.Environ(), r.Env...)
	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(env...)),
		interp.StdIO(nil, stdout, stderr),
	}
	if r.Dir != "" {
		opts = append(opts, interp.Dir(r.Dir))
	}
	// "--" keeps arguments such as "--js" from being read as shell options.
	if len(args) > 0 {
		opts = append(opts, interp.Params(append([]string{"--"}, args...)...))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return 1, fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return int(exitStatus), nil
		}
		return 1, fmt.Errorf("script execution failed: %w", err)
	}
	return 0, nil
}
