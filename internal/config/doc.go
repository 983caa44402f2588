// SPDX-License-Identifier: MPL-2.0

// Package config loads jsroll settings using Viper with CUE as the file format.
//
// The project file jsroll.cue in the working directory wins over the user file
// (~/.config/jsroll/config.cue, or the platform equivalent). Environment
// variables prefixed with JSROLL_ override both, e.g. JSROLL_BUILD_DIR.
//
// Files are validated against the embedded schema (config_schema.cue) before
// they are merged over the defaults; cross-field rules such as unique entry
// outputs are checked afterwards by Config.IsValid.
package config
