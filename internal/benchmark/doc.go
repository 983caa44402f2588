// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a build:
//   - CUE configuration loading and schema validation
//   - directive scanning of a generated source tree
//   - resolution in bundle and list mode
//   - whole-tree dependency graph construction
//   - a full build at compilation level NONE
//
// To generate a profile, run:
//
//	go test ./internal/benchmark -run '^$' -bench . -cpuprofile default.pgo
package benchmark
