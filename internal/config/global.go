// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride pins ConfigDir, skipping the platform lookup of the user
// config.cue. Empty means no override.
var configDirOverride string

// SetConfigDirOverride makes ConfigDir return dir, so tests can place a user
// config.cue without touching $XDG_CONFIG_HOME, %APPDATA% or the home
// directory.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// Reset drops the override set by SetConfigDirOverride.
func Reset() {
	configDirOverride = ""
}
