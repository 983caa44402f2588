// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jsroll/jsroll/internal/compiler"
	"github.com/jsroll/jsroll/internal/config"
	"github.com/jsroll/jsroll/internal/pipeline"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every command handler receives an App and loads
	// its project through it.
	App struct {
		Config ConfigProvider
		// Runner executes external tools. Nil keeps the pipeline default,
		// which runs them through the embedded shell interpreter.
		Runner compiler.Runner
		stdout io.Writer
		stderr io.Writer

		// Bound to the persistent --config and --verbose flags. verbose also
		// picks up ui.verbose once configuration is loaded.
		configPath string
		verbose    bool
		// style is the glamour style for catalog issues.
		style string
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Runner compiler.Runner
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// project is everything a pipeline command needs after configuration has
	// been loaded.
	project struct {
		ctx      context.Context
		cfg      *config.Config
		pipeline *pipeline.Pipeline
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{
		Config: deps.Config,
		Runner: deps.Runner,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
		style:  "dark",
	}
}

// loadOptions describes where configuration comes from for this invocation.
func (a *App) loadOptions() (config.LoadOptions, error) {
	wd, err := os.Getwd()
	if err != nil {
		return config.LoadOptions{}, fmt.Errorf("determine working directory: %w", err)
	}
	return config.LoadOptions{ConfigFilePath: a.configPath, WorkDir: wd}, nil
}

// loadConfig reads the configuration and applies its ui section: ui.verbose
// applies when --verbose is not set.
func (a *App) loadConfig(ctx context.Context) (*config.Config, config.LoadOptions, error) {
	opts, err := a.loadOptions()
	if err != nil {
		return nil, opts, err
	}
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		return nil, opts, err
	}
	a.verbose = a.verbose || cfg.UI.Verbose
	a.style = glamourStyle(cfg.UI.ColorScheme)
	return cfg, opts, nil
}

// loadProject loads configuration for the working directory and builds the
// pipeline. The returned context carries the project logger.
func (a *App) loadProject(ctx context.Context) (*project, error) {
	cfg, opts, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	logger := newLogger(a.stderr, a.verbose)

	popts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithOutput(a.stdout, a.stderr),
	}
	if a.Runner != nil {
		popts = append(popts, pipeline.WithRunner(a.Runner))
	}
	p, err := pipeline.New(opts.WorkDir, cfg, popts...)
	if err != nil {
		return nil, err
	}
	return &project{
		ctx:      withLogger(ctx, logger),
		cfg:      cfg,
		pipeline: p,
	}, nil
}

// glamourStyle maps ui.color_scheme to a glamour style name.
func glamourStyle(scheme config.ColorScheme) string {
	if scheme == config.ColorSchemeLight {
		return "light"
	}
	return "dark"
}
