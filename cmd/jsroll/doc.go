// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the jsroll command tree.
//
// Every command receives an *App, the composition root that owns the
// configuration provider, the external-tool runner and the output streams.
// Project commands load configuration for the working directory and run on
// an internal/pipeline.Pipeline.
package cmd
