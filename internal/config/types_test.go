// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
	"time"
)

func TestCompilationLevel_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level CompilationLevel
		want  bool
	}{
		{LevelNone, true},
		{LevelWhitespaceOnly, true},
		{LevelSimple, true},
		{LevelAdvanced, true},
		{"simple_optimizations", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			t.Parallel()
			ok, errs := tt.level.IsValid()
			if ok != tt.want {
				t.Fatalf("IsValid() = %v, want %v", ok, tt.want)
			}
			if !ok && !errors.Is(errs[0], ErrInvalidCompilationLevel) {
				t.Errorf("expected ErrInvalidCompilationLevel, got %v", errs[0])
			}
		})
	}
}

func TestColorScheme_IsValid(t *testing.T) {
	t.Parallel()

	for _, cs := range []ColorScheme{ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight} {
		if ok, errs := cs.IsValid(); !ok {
			t.Errorf("%s: unexpected errors %v", cs, errs)
		}
	}
	ok, errs := ColorScheme("neon").IsValid()
	if ok || !errors.Is(errs[0], ErrInvalidColorScheme) {
		t.Errorf("neon: IsValid() = %v, %v", ok, errs)
	}
}

func TestWatchConfig_DebounceDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"500ms", 500 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"0s", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := WatchConfig{Debounce: tt.in}.DebounceDuration()
		if (err != nil) != tt.wantErr {
			t.Errorf("DebounceDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidDebounce) {
			t.Errorf("DebounceDuration(%q) error does not wrap ErrInvalidDebounce: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("DebounceDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"empty root", func(c *Config) { c.Entries[0].Root = " " }, ErrInvalidEntry},
		{"empty output", func(c *Config) { c.Entries[0].Output = "" }, ErrInvalidEntry},
		{"duplicate output", func(c *Config) {
			c.Entries = append(c.Entries, EntryConfig{Root: "Other.js", Output: c.Entries[0].Output})
		}, ErrInvalidEntry},
		{"bad level", func(c *Config) { c.Compiler.Level = "FAST" }, ErrInvalidCompilationLevel},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "-1s" }, ErrInvalidDebounce},
		{"bad color scheme", func(c *Config) { c.UI.ColorScheme = "neon" }, ErrInvalidColorScheme},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			tt.mutate(cfg)

			ok, errs := cfg.IsValid()
			if tt.want == nil {
				if !ok {
					t.Fatalf("expected valid config, got %v", errs)
				}
				return
			}
			if ok {
				t.Fatal("expected invalid config")
			}
			var cfgErr *InvalidConfigError
			if !errors.As(errs[0], &cfgErr) {
				t.Fatalf("expected *InvalidConfigError, got %T", errs[0])
			}
			found := false
			for _, fe := range cfgErr.FieldErrors {
				if errors.Is(fe, tt.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("no field error wraps %v: %v", tt.want, cfgErr.FieldErrors)
			}
		})
	}
}
