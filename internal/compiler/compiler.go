// SPDX-License-Identifier: MPL-2.0

// Package compiler drives the Closure Compiler used to syntax-check and
// compress bundles.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// LevelNone concatenates the inputs without invoking the compiler.
	LevelNone Level = "NONE"
	// LevelWhitespaceOnly strips comments and whitespace.
	LevelWhitespaceOnly Level = "WHITESPACE_ONLY"
	// LevelSimple renames locals and applies safe optimizations.
	LevelSimple Level = "SIMPLE_OPTIMIZATIONS"
	// LevelAdvanced applies whole-program optimizations.
	LevelAdvanced Level = "ADVANCED_OPTIMIZATIONS"

	// DefaultLevel is used when no level or an unknown level is requested.
	DefaultLevel = LevelSimple

	// DefaultJava is the java executable looked up on PATH.
	DefaultJava = "java"
	// DefaultJar is the compiler jar location relative to the project.
	DefaultJar = "tools/closure-compiler/compiler.jar"
	// DefaultWarningLevel keeps the compiler quiet about style issues.
	DefaultWarningLevel = "QUIET"
)

var (
	// ErrInvalidLevel is returned when a compilation level is not recognized.
	ErrInvalidLevel = errors.New("invalid compilation level")

	// ErrCompilerNotFound is returned when the compiler jar is missing.
	ErrCompilerNotFound = errors.New("closure compiler not found")

	// ErrCompileFailed is returned when the compiler exits with a non-zero status.
	ErrCompileFailed = errors.New("compilation failed")
)

type (
	// Level is a Closure Compiler compilation level.
	Level string

	// InvalidLevelError is returned when a Level value is not recognized.
	// It wraps ErrInvalidLevel for errors.Is() compatibility.
	InvalidLevelError struct {
		Value Level
	}

	// NotFoundError reports a missing compiler jar.
	NotFoundError struct {
		Jar string
	}

	// CompileFailedError reports a non-zero compiler exit.
	CompileFailedError struct {
		Output string
		Code   int
	}

	// Compiler runs the Closure Compiler through a Runner. The zero value is
	// not usable; create one with New.
	Compiler struct {
		java         string
		jar          string
		warningLevel string
		runner       Runner
		logger       *log.Logger
	}

	// Option configures a Compiler.
	Option func(*Compiler)
)

// Error implements the error interface.
func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("invalid compilation level %q (valid: %s)", e.Value, strings.Join(LevelNames(), ", "))
}

// Unwrap returns ErrInvalidLevel for errors.Is() compatibility.
func (e *InvalidLevelError) Unwrap() error { return ErrInvalidLevel }

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("closure compiler not found at %s", e.Jar)
}

// Unwrap returns ErrCompilerNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrCompilerNotFound }

// Error implements the error interface.
func (e *CompileFailedError) Error() string {
	return fmt.Sprintf("compiling %s failed (exit code %d)", e.Output, e.Code)
}

// Unwrap returns ErrCompileFailed for errors.Is() compatibility.
func (e *CompileFailedError) Unwrap() error { return ErrCompileFailed }

// LevelNames lists the accepted compilation levels.
func LevelNames() []string {
	return []string{string(LevelSimple), string(LevelWhitespaceOnly), string(LevelAdvanced), string(LevelNone)}
}

// IsValid returns whether the Level is one of the defined levels.
func (l Level) IsValid() (bool, []error) {
	switch l {
	case LevelNone, LevelWhitespaceOnly, LevelSimple, LevelAdvanced:
		return true, nil
	default:
		return false, []error{&InvalidLevelError{Value: l}}
	}
}

// ParseLevel parses a compilation level. Unknown values yield DefaultLevel
// together with an InvalidLevelError so callers can warn and carry on.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return DefaultLevel, nil
	}
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if ok, errs := l.IsValid(); !ok {
		return DefaultLevel, errs[0]
	}
	return l, nil
}

// WithJava sets the java executable.
func WithJava(java string) Option {
	return func(c *Compiler) {
		if java != "" {
			c.java = java
		}
	}
}

// WithJar sets the compiler jar path.
func WithJar(jar string) Option {
	return func(c *Compiler) {
		if jar != "" {
			c.jar = jar
		}
	}
}

// WithWarningLevel sets the --warning_level flag.
func WithWarningLevel(level string) Option {
	return func(c *Compiler) {
		if level != "" {
			c.warningLevel = level
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Compiler that executes through runner.
func New(runner Runner, opts ...Option) *Compiler {
	c := &Compiler{
		java:         DefaultJava,
		jar:          DefaultJar,
		warningLevel: DefaultWarningLevel,
		runner:       runner,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Jar returns the configured compiler jar.
func (c *Compiler) Jar() string { return c.jar }

// Available reports whether the compiler jar exists.
func (c *Compiler) Available() error {
	info, err := os.Stat(c.jar)
	if err != nil || info.IsDir() {
		return &NotFoundError{Jar: c.jar}
	}
	return nil
}

// Validate runs the compiler in syntax-check mode over paths and reports
// whether all of them were accepted. It satisfies bundler.Validator.
func (c *Compiler) Validate(ctx context.Context, paths []string) (bool, error) {
	if len(paths) == 0 {
		return true, nil
	}
	if err := c.Available(); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp("", "jsroll-check-*.js")
	if err != nil {
		return false, fmt.Errorf("create syntax check output: %w", err)
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpName) }() // Best-effort cleanup

	args := c.baseArgs("--js_output_file", tmpName, "--dev_mode", "START_AND_END")
	args = appendInputs(args, paths)

	code, err := Exec(ctx, c.runner, args...)
	if err != nil {
		return false, err
	}
	c.logger.Debug("syntax check", "files", len(paths), "exit", code)
	return code == 0, nil
}

// Compile writes the compiled form of inputs to output. LevelNone appends
// each input followed by a newline to output without invoking the
// compiler; other levels replace output with the compiler's result.
func (c *Compiler) Compile(ctx context.Context, inputs []string, output string, level Level) error {
	if ok, errs := level.IsValid(); !ok {
		return errs[0]
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if level == LevelNone {
		return concat(inputs, output)
	}
	if err := c.Available(); err != nil {
		return err
	}

	args := c.baseArgs("--compilation_level", string(level), "--js_output_file", output)
	args = appendInputs(args, inputs)

	code, err := Exec(ctx, c.runner, args...)
	if err != nil {
		return err
	}
	if code != 0 {
		return &CompileFailedError{Output: output, Code: code}
	}
	c.logger.Debug("compiled", "output", output, "level", level, "inputs", len(inputs))
	return nil
}

func (c *Compiler) baseArgs(extra ...string) []string {
	args := []string{c.java, "-jar", c.jar, "--warning_level", c.warningLevel}
	return append(args, extra...)
}

func appendInputs(args, inputs []string) []string {
	for _, in := range inputs {
		args = append(args, "--js", in)
	}
	return args
}

func concat(inputs []string, output string) (err error) {
	out, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close output: %w", closeErr)
		}
	}()

	for _, in := range inputs {
		data, err := os.ReadFile(in)
		if err != nil {
			return fmt.Errorf("read %s: %w", in, err)
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		if _, err := io.WriteString(out, "\n"); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	return nil
}
