// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/jsroll/jsroll/internal/issue"
	"github.com/jsroll/jsroll/internal/testutil"
)

// loadIn loads configuration with an isolated user config dir.
func loadIn(t *testing.T, workDir string, opts LoadOptions) (*Config, string, error) {
	t.Helper()
	opts.WorkDir = workDir
	if opts.ConfigDirPath == "" {
		opts.ConfigDirPath = filepath.Join(t.TempDir(), "user-config")
	}
	return loadWithOptions(context.Background(), opts)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()

	if cfg.SourceDir != "src" || cfg.BuildDir != "build" || cfg.Extension != ".js" {
		t.Errorf("unexpected directories: %+v", cfg)
	}
	if len(cfg.Entries) != 1 || cfg.Entries[0].Root != "Application.js" || cfg.Entries[0].Output != "js/app.js" {
		t.Errorf("unexpected default entries: %+v", cfg.Entries)
	}
	if cfg.Compiler.Level != LevelSimple {
		t.Errorf("expected default level SIMPLE_OPTIMIZATIONS, got %s", cfg.Compiler.Level)
	}
	if cfg.Compiler.SyntaxCheck {
		t.Error("expected syntax check to be off by default")
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("expected default color scheme to be auto, got %s", cfg.UI.ColorScheme)
	}
	if ok, errs := cfg.IsValid(); !ok {
		t.Errorf("default config should be valid: %v", errs)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	restore := testutil.MustSetenv(t, "XDG_CONFIG_HOME", "/tmp/test-xdg-config")
	defer restore()

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if expected := filepath.Join("/tmp/test-xdg-config", AppName); dir != expected {
		t.Errorf("ConfigDir() = %s, want %s", dir, expected)
	}
}

func TestConfigDirOverride(t *testing.T) {
	SetConfigDirOverride("/custom/dir")
	defer Reset()

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if dir != "/custom/dir" {
		t.Errorf("ConfigDir() = %s, want /custom/dir", dir)
	}
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	t.Parallel()
	cfg, path, err := loadIn(t, t.TempDir(), LoadOptions{})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if path != "" {
		t.Errorf("expected no config path, got %q", path)
	}
	if cfg.SourceDir != "src" || len(cfg.Entries) != 1 {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_ProjectFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		ProjectFileName: `
source_dir: "js"
entries: [
	{root: "Main.js", output: "main.min.js"},
	{root: "Admin.js", output: "admin.min.js"},
]
compiler: {level: "WHITESPACE_ONLY", syntax_check: true}
assets: [{from: "static/**/*.png", to: "img"}]
`,
	})

	cfg, path, err := loadIn(t, dir, LoadOptions{})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if path != filepath.Join(dir, ProjectFileName) {
		t.Errorf("path = %q", path)
	}
	if cfg.SourceDir != "js" {
		t.Errorf("source_dir = %q, want js", cfg.SourceDir)
	}
	if len(cfg.Entries) != 2 || cfg.Entries[1].Root != "Admin.js" {
		t.Errorf("entries = %+v", cfg.Entries)
	}
	if cfg.Compiler.Level != LevelWhitespaceOnly || !cfg.Compiler.SyntaxCheck {
		t.Errorf("compiler = %+v", cfg.Compiler)
	}
	// Untouched fields of a partially given section keep their defaults.
	if cfg.Compiler.Java != "java" {
		t.Errorf("compiler.java = %q, want default", cfg.Compiler.Java)
	}
	if len(cfg.Assets) != 1 || cfg.Assets[0].To != "img" {
		t.Errorf("assets = %+v", cfg.Assets)
	}
	if cfg.BuildDir != "build" {
		t.Errorf("build_dir = %q, want default", cfg.BuildDir)
	}
}

func TestLoad_ProjectFileWinsOverUserConfig(t *testing.T) {
	t.Parallel()
	project := t.TempDir()
	user := t.TempDir()
	testutil.WriteTree(t, project, map[string]string{ProjectFileName: `build_dir: "out"`})
	testutil.WriteTree(t, user, map[string]string{"config.cue": `build_dir: "user-out"`})

	cfg, _, err := loadIn(t, project, LoadOptions{ConfigDirPath: user})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.BuildDir != "out" {
		t.Errorf("build_dir = %q, want out", cfg.BuildDir)
	}

	cfg, path, err := loadIn(t, t.TempDir(), LoadOptions{ConfigDirPath: user})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.BuildDir != "user-out" || path != filepath.Join(user, "config.cue") {
		t.Errorf("expected user config, got build_dir=%q path=%q", cfg.BuildDir, path)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	restore := testutil.MustSetenv(t, "JSROLL_BUILD_DIR", "env-build")
	defer restore()

	cfg, _, err := loadIn(t, t.TempDir(), LoadOptions{})
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.BuildDir != "env-build" {
		t.Errorf("build_dir = %q, want env-build", cfg.BuildDir)
	}
}

func TestLoad_CustomPath_NotFound_ReturnsError(t *testing.T) {
	t.Parallel()
	missing := filepath.Join(t.TempDir(), "nope.cue")
	_, _, err := loadIn(t, t.TempDir(), LoadOptions{ConfigFilePath: missing})
	if err == nil {
		t.Fatal("expected error for missing config file")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ActionableError, got %T", err)
	}
	if ae.Resource != missing {
		t.Errorf("resource = %q, want %q", ae.Resource, missing)
	}
	if ae.Issue != issue.ConfigLoadFailedId {
		t.Errorf("issue = %d, want ConfigLoadFailedId", ae.Issue)
	}
}

func TestLoad_InvalidCUE_ReturnsError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  string
		contains string
	}{
		{"syntax", `build_dir: `, "load configuration"},
		{"unknown field", `container_engine: "podman"`, "container_engine"},
		{"bad level", `compiler: level: "FAST"`, "level"},
		{"bad debounce", `watch: debounce: "soon"`, "debounce"},
		{"duplicate outputs", `entries: [{root: "a.js", output: "x.js"}, {root: "b.js", output: "x.js"}]`, "already written"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			testutil.WriteTree(t, dir, map[string]string{ProjectFileName: tt.content})

			_, _, err := loadIn(t, dir, LoadOptions{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("error %q does not contain %q", err, tt.contains)
			}
		})
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Entries = append(cfg.Entries, EntryConfig{Root: "Admin.js", Output: "js/admin.js"})
	cfg.Watch.Ignore = []string{"**/*.tmp"}
	cfg.Package.Output = "dist/site.tar.gz"

	dir := t.TempDir()
	path := filepath.Join(dir, ProjectFileName)
	if err := WriteFile(path, cfg, false); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	loaded, _, err := loadIn(t, dir, LoadOptions{})
	if err != nil {
		t.Fatalf("generated config does not load: %v\n%s", err, testutil.ReadFile(t, path))
	}
	if len(loaded.Entries) != 2 || loaded.Entries[1].Output != "js/admin.js" {
		t.Errorf("entries = %+v", loaded.Entries)
	}
	if !slices.Equal(loaded.Watch.Ignore, []string{"**/*.tmp"}) {
		t.Errorf("watch.ignore = %v", loaded.Watch.Ignore)
	}
	if loaded.Docs.Command != cfg.Docs.Command {
		t.Errorf("docs.command = %q, want %q", loaded.Docs.Command, cfg.Docs.Command)
	}
	if loaded.Package.Output != "dist/site.tar.gz" {
		t.Errorf("package.output = %q", loaded.Package.Output)
	}
}

func TestWriteFile_RefusesOverwrite(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ProjectFileName)
	if err := os.WriteFile(path, []byte("// mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(path, DefaultConfig(), false); err == nil {
		t.Fatal("expected error when file exists")
	}
	if got := testutil.ReadFile(t, path); got != "// mine\n" {
		t.Errorf("file was modified: %q", got)
	}
	if err := WriteFile(path, DefaultConfig(), true); err != nil {
		t.Fatalf("WriteFile(force) error: %v", err)
	}
}

func TestGenerateTOML(t *testing.T) {
	t.Parallel()
	out, err := GenerateTOML(DefaultConfig())
	if err != nil {
		t.Fatalf("GenerateTOML() error: %v", err)
	}

	var decoded Config
	if err := toml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid TOML: %v\n%s", err, out)
	}
	if decoded.BuildDir != "build" || decoded.Compiler.Level != LevelSimple {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(decoded.Entries) != 1 {
		t.Errorf("entries = %+v", decoded.Entries)
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path, err := ResolvePath(LoadOptions{WorkDir: dir, ConfigDirPath: t.TempDir()})
	if err != nil || path != "" {
		t.Errorf("ResolvePath() = %q, %v; want empty", path, err)
	}

	testutil.WriteTree(t, dir, map[string]string{ProjectFileName: ""})
	path, err = ResolvePath(LoadOptions{WorkDir: dir, ConfigDirPath: t.TempDir()})
	if err != nil || path != filepath.Join(dir, ProjectFileName) {
		t.Errorf("ResolvePath() = %q, %v", path, err)
	}
}
