// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/jsroll/jsroll/internal/issue"
	"github.com/jsroll/jsroll/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "jsroll"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectFileName is the project config file looked up in the working directory.
	ProjectFileName = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides, e.g. JSROLL_BUILD_DIR.
	EnvPrefix = "JSROLL"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the jsroll configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// ResolvePath returns the config file Load would read, or "" when none
// exists and defaults apply. Lookup order: explicit file, the project file
// in the working directory, the user config directory.
func ResolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'jsroll config init' to create a project config").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	local := filepath.Join(opts.WorkDir, ProjectFileName)
	if fileExists(local) {
		return local, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	user := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(user) {
		return user, nil
	}
	return "", nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("See 'jsroll config dump' for the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Constraints CUE cannot express: unique entry outputs, parseable durations.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Give every entry its own output path").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("source_dir", defaults.SourceDir)
	v.SetDefault("build_dir", defaults.BuildDir)
	v.SetDefault("extension", defaults.Extension)
	v.SetDefault("entries", defaults.Entries)
	v.SetDefault("workers.dir", defaults.Workers.Dir)
	v.SetDefault("workers.output_dir", defaults.Workers.OutputDir)
	v.SetDefault("assets", defaults.Assets)
	v.SetDefault("compiler.jar", defaults.Compiler.Jar)
	v.SetDefault("compiler.java", defaults.Compiler.Java)
	v.SetDefault("compiler.level", defaults.Compiler.Level)
	v.SetDefault("compiler.warning_level", defaults.Compiler.WarningLevel)
	v.SetDefault("compiler.syntax_check", defaults.Compiler.SyntaxCheck)
	v.SetDefault("watch.patterns", defaults.Watch.Patterns)
	v.SetDefault("watch.ignore", defaults.Watch.Ignore)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce)
	v.SetDefault("watch.clear_screen", defaults.Watch.ClearScreen)
	v.SetDefault("package.output", defaults.Package.Output)
	v.SetDefault("docs.command", defaults.Docs.Command)
	v.SetDefault("docs.output_dir", defaults.Docs.OutputDir)
	v.SetDefault("docs.dirs", defaults.Docs.Dirs)
	v.SetDefault("tests.dir", defaults.Tests.Dir)
	v.SetDefault("tests.pattern", defaults.Tests.Pattern)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper. Fields stay non-concrete so omitted sections keep Viper defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecodeString[map[string]any](configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// WriteFile writes cfg as CUE to path. An existing file is only replaced
// when force is set.
func WriteFile(path string, cfg *Config, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateTOML renders cfg as TOML.
func GenerateTOML(cfg *Config) ([]byte, error) {
	out, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config as TOML: %w", err)
	}
	return out, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// jsroll project configuration\n")
	sb.WriteString("// Paths are relative to the directory holding this file.\n\n")

	fmt.Fprintf(&sb, "source_dir: %q\n", cfg.SourceDir)
	fmt.Fprintf(&sb, "build_dir:  %q\n", cfg.BuildDir)
	fmt.Fprintf(&sb, "extension:  %q\n", cfg.Extension)

	if len(cfg.Entries) > 0 {
		sb.WriteString("\nentries: [\n")
		for _, e := range cfg.Entries {
			fmt.Fprintf(&sb, "\t{root: %q, output: %q},\n", e.Root, e.Output)
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\nworkers: {\n")
	fmt.Fprintf(&sb, "\tdir:        %q\n", cfg.Workers.Dir)
	fmt.Fprintf(&sb, "\toutput_dir: %q\n", cfg.Workers.OutputDir)
	sb.WriteString("}\n")

	if len(cfg.Assets) > 0 {
		sb.WriteString("\nassets: [\n")
		for _, a := range cfg.Assets {
			if a.Optional {
				fmt.Fprintf(&sb, "\t{from: %q, to: %q, optional: true},\n", a.From, a.To)
			} else {
				fmt.Fprintf(&sb, "\t{from: %q, to: %q},\n", a.From, a.To)
			}
		}
		sb.WriteString("]\n")
	}

	sb.WriteString("\ncompiler: {\n")
	fmt.Fprintf(&sb, "\tjar:           %q\n", cfg.Compiler.Jar)
	fmt.Fprintf(&sb, "\tjava:          %q\n", cfg.Compiler.Java)
	fmt.Fprintf(&sb, "\tlevel:         %q\n", cfg.Compiler.Level)
	fmt.Fprintf(&sb, "\twarning_level: %q\n", cfg.Compiler.WarningLevel)
	fmt.Fprintf(&sb, "\tsyntax_check:  %v\n", cfg.Compiler.SyntaxCheck)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tpatterns: %s\n", cueList(cfg.Watch.Patterns))
	if len(cfg.Watch.Ignore) > 0 {
		fmt.Fprintf(&sb, "\tignore: %s\n", cueList(cfg.Watch.Ignore))
	}
	if cfg.Watch.Debounce != "" {
		fmt.Fprintf(&sb, "\tdebounce:     %q\n", cfg.Watch.Debounce)
	}
	fmt.Fprintf(&sb, "\tclear_screen: %v\n", cfg.Watch.ClearScreen)
	sb.WriteString("}\n")

	if cfg.Package.Output != "" {
		sb.WriteString("\npackage: {\n")
		fmt.Fprintf(&sb, "\toutput: %q\n", cfg.Package.Output)
		sb.WriteString("}\n")
	}

	sb.WriteString("\ndocs: {\n")
	fmt.Fprintf(&sb, "\tcommand:    %q\n", cfg.Docs.Command)
	fmt.Fprintf(&sb, "\toutput_dir: %q\n", cfg.Docs.OutputDir)
	fmt.Fprintf(&sb, "\tdirs: %s\n", cueList(cfg.Docs.Dirs))
	sb.WriteString("}\n")

	sb.WriteString("\ntests: {\n")
	fmt.Fprintf(&sb, "\tdir:     %q\n", cfg.Tests.Dir)
	fmt.Fprintf(&sb, "\tpattern: %q\n", cfg.Tests.Pattern)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose:      %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
