// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// LevelNone concatenates bundles without compression.
	LevelNone CompilationLevel = "NONE"
	// LevelWhitespaceOnly strips comments and whitespace.
	LevelWhitespaceOnly CompilationLevel = "WHITESPACE_ONLY"
	// LevelSimple applies safe optimizations.
	LevelSimple CompilationLevel = "SIMPLE_OPTIMIZATIONS"
	// LevelAdvanced applies whole-program optimizations.
	LevelAdvanced CompilationLevel = "ADVANCED_OPTIMIZATIONS"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidCompilationLevel is returned when a CompilationLevel value is not recognized.
	ErrInvalidCompilationLevel = errors.New("invalid compilation level")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidDebounce is returned when a watch debounce is not a positive duration.
	ErrInvalidDebounce = errors.New("invalid debounce duration")
	// ErrInvalidEntry is the sentinel error wrapped by InvalidEntryError.
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// CompilationLevel selects how bundles are compressed.
	// Defined locally to avoid coupling config to internal/compiler;
	// the pipeline converts at the boundary.
	CompilationLevel string

	// InvalidCompilationLevelError is returned when a CompilationLevel value is not recognized.
	// It wraps ErrInvalidCompilationLevel for errors.Is() compatibility.
	InvalidCompilationLevelError struct {
		Value CompilationLevel
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidDebounceError is returned when a debounce value does not parse
	// as a positive duration.
	InvalidDebounceError struct {
		Value string
	}

	// InvalidEntryError is returned when an entry has an empty root or output,
	// or when two entries write the same output.
	InvalidEntryError struct {
		Index  int
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the project configuration. Relative paths are resolved
	// against the project directory.
	Config struct {
		// SourceDir is the directory require references resolve against.
		SourceDir string `json:"source_dir" mapstructure:"source_dir" toml:"source_dir"`
		// BuildDir is removed and recreated by every build.
		BuildDir string `json:"build_dir" mapstructure:"build_dir" toml:"build_dir"`
		// Extension is the source file extension.
		Extension string         `json:"extension" mapstructure:"extension" toml:"extension"`
		Entries   []EntryConfig  `json:"entries" mapstructure:"entries" toml:"entries"`
		Workers   WorkersConfig  `json:"workers" mapstructure:"workers" toml:"workers"`
		Assets    []AssetRule    `json:"assets" mapstructure:"assets" toml:"assets"`
		Compiler  CompilerConfig `json:"compiler" mapstructure:"compiler" toml:"compiler"`
		Watch     WatchConfig    `json:"watch" mapstructure:"watch" toml:"watch"`
		Package   PackageConfig  `json:"package" mapstructure:"package" toml:"package"`
		Docs      DocsConfig     `json:"docs" mapstructure:"docs" toml:"docs"`
		Tests     TestsConfig    `json:"tests" mapstructure:"tests" toml:"tests"`
		UI        UIConfig       `json:"ui" mapstructure:"ui" toml:"ui"`
	}

	// EntryConfig is one bundle: Root relative to SourceDir, Output
	// relative to BuildDir.
	EntryConfig struct {
		Root   string `json:"root" mapstructure:"root" toml:"root"`
		Output string `json:"output" mapstructure:"output" toml:"output"`
	}

	// WorkersConfig turns every source file in Dir (relative to SourceDir)
	// into its own bundle under OutputDir (relative to BuildDir).
	WorkersConfig struct {
		Dir       string `json:"dir" mapstructure:"dir" toml:"dir"`
		OutputDir string `json:"output_dir" mapstructure:"output_dir" toml:"output_dir"`
	}

	// AssetRule copies From (relative to the project, may be a doublestar
	// glob) to To (relative to BuildDir).
	AssetRule struct {
		From     string `json:"from" mapstructure:"from" toml:"from"`
		To       string `json:"to" mapstructure:"to" toml:"to"`
		Optional bool   `json:"optional,omitempty" mapstructure:"optional" toml:"optional,omitempty"`
	}

	// CompilerConfig configures the Closure Compiler.
	CompilerConfig struct {
		Jar          string           `json:"jar" mapstructure:"jar" toml:"jar"`
		Java         string           `json:"java" mapstructure:"java" toml:"java"`
		Level        CompilationLevel `json:"level" mapstructure:"level" toml:"level"`
		WarningLevel string           `json:"warning_level" mapstructure:"warning_level" toml:"warning_level"`
		SyntaxCheck  bool             `json:"syntax_check" mapstructure:"syntax_check" toml:"syntax_check"`
	}

	// WatchConfig configures jsroll watch.
	WatchConfig struct {
		Patterns    []string `json:"patterns" mapstructure:"patterns" toml:"patterns"`
		Ignore      []string `json:"ignore" mapstructure:"ignore" toml:"ignore"`
		Debounce    string   `json:"debounce" mapstructure:"debounce" toml:"debounce"`
		ClearScreen bool     `json:"clear_screen" mapstructure:"clear_screen" toml:"clear_screen"`
	}

	// PackageConfig configures jsroll package. An empty Output means
	// "<build_dir>.tar.gz".
	PackageConfig struct {
		Output string `json:"output" mapstructure:"output" toml:"output"`
	}

	// DocsConfig configures jsroll docs. Command is a shell script; it sees
	// the output directory as $JSROLL_DOCS_OUT and the source files directly
	// inside each of Dirs as "$@".
	DocsConfig struct {
		Command   string   `json:"command" mapstructure:"command" toml:"command"`
		OutputDir string   `json:"output_dir" mapstructure:"output_dir" toml:"output_dir"`
		Dirs      []string `json:"dirs" mapstructure:"dirs" toml:"dirs"`
	}

	// TestsConfig selects the files jsroll tests checks.
	TestsConfig struct {
		Dir     string `json:"dir" mapstructure:"dir" toml:"dir"`
		Pattern string `json:"pattern" mapstructure:"pattern" toml:"pattern"`
	}

	// UIConfig configures user interface settings.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme" toml:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose" toml:"verbose"`
	}
)

// IsValid returns whether the Config and all of its sections are valid.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	seenOutputs := make(map[string]int, len(c.Entries))
	for i, e := range c.Entries {
		switch {
		case strings.TrimSpace(e.Root) == "":
			errs = append(errs, &InvalidEntryError{Index: i, Reason: "root must not be empty"})
		case strings.TrimSpace(e.Output) == "":
			errs = append(errs, &InvalidEntryError{Index: i, Reason: "output must not be empty"})
		default:
			if first, dup := seenOutputs[e.Output]; dup {
				errs = append(errs, &InvalidEntryError{Index: i, Reason: fmt.Sprintf("output %q already written by entries[%d]", e.Output, first)})
			}
			seenOutputs[e.Output] = i
		}
	}
	if c.Compiler.Level != "" {
		if valid, fieldErrs := c.Compiler.Level.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if _, err := c.Watch.DebounceDuration(); err != nil {
		errs = append(errs, err)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Error implements the error interface.
func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("entries[%d]: %s", e.Index, e.Reason)
}

// Unwrap returns ErrInvalidEntry for errors.Is() compatibility.
func (e *InvalidEntryError) Unwrap() error { return ErrInvalidEntry }

// DebounceDuration parses Debounce. An empty value yields zero, which
// callers treat as "use the default".
func (w WatchConfig) DebounceDuration() (time.Duration, error) {
	if w.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 0, &InvalidDebounceError{Value: w.Debounce}
	}
	return d, nil
}

// Error implements the error interface.
func (e *InvalidDebounceError) Error() string {
	return fmt.Sprintf("invalid debounce %q: must be a positive duration such as 500ms", e.Value)
}

// Unwrap returns ErrInvalidDebounce for errors.Is() compatibility.
func (e *InvalidDebounceError) Unwrap() error { return ErrInvalidDebounce }

// Error implements the error interface for InvalidCompilationLevelError.
func (e *InvalidCompilationLevelError) Error() string {
	return fmt.Sprintf("invalid compilation level %q (valid: NONE, WHITESPACE_ONLY, SIMPLE_OPTIMIZATIONS, ADVANCED_OPTIMIZATIONS)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidCompilationLevelError) Unwrap() error { return ErrInvalidCompilationLevel }

// String returns the string representation of the CompilationLevel.
func (l CompilationLevel) String() string { return string(l) }

// IsValid returns whether the CompilationLevel is one of the defined levels,
// and a list of validation errors if it is not.
func (l CompilationLevel) IsValid() (bool, []error) {
	switch l {
	case LevelNone, LevelWhitespaceOnly, LevelSimple, LevelAdvanced:
		return true, nil
	default:
		return false, []error{&InvalidCompilationLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SourceDir: "src",
		BuildDir:  "build",
		Extension: ".js",
		Entries: []EntryConfig{
			{Root: "Application.js", Output: "js/app.js"},
		},
		Workers: WorkersConfig{
			Dir:       "workers",
			OutputDir: "js/workers",
		},
		Assets: []AssetRule{
			{From: "src/resources", To: "resources", Optional: true},
			{From: "src/*.html", To: ".", Optional: true},
		},
		Compiler: CompilerConfig{
			Jar:          "tools/closure-compiler/compiler.jar",
			Java:         "java",
			Level:        LevelSimple,
			WarningLevel: "QUIET",
			SyntaxCheck:  false,
		},
		Watch: WatchConfig{
			Patterns:    []string{"src/**/*.js", "src/*.html", "src/resources/**"},
			Ignore:      []string{},
			Debounce:    "500ms",
			ClearScreen: false,
		},
		Package: PackageConfig{
			Output: "", // Will use <build_dir>.tar.gz if empty
		},
		Docs: DocsConfig{
			Command:   `pdoc -o "$JSROLL_DOCS_OUT" "$@"`,
			OutputDir: "docs",
			Dirs:      []string{"src"},
		},
		Tests: TestsConfig{
			Dir:     "tests",
			Pattern: "**/*.js",
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
