// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/charmbracelet/fang"

	"github.com/jsroll/jsroll/internal/compiler"
	"github.com/jsroll/jsroll/internal/depgraph"
	"github.com/jsroll/jsroll/internal/issue"
	"github.com/jsroll/jsroll/internal/pipeline"
	"github.com/jsroll/jsroll/pkg/bundler"
	"github.com/jsroll/jsroll/pkg/emit"
)

// Exit codes returned through ExitError.
const (
	exitFailure = 1
	exitConfig  = 2
	// exitResolve covers failures in the sources themselves: missing files,
	// cycles and syntax errors.
	exitResolve = 3
)

// classifyError maps a command failure to an issue catalog entry and an exit
// code. Errors that are already an ExitError pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	ae, ok := actionableError(err)
	if !ok {
		return &ExitError{Code: exitFailure, Err: err}
	}

	code := exitFailure
	switch ae.Issue {
	case issue.ConfigLoadFailedId:
		code = exitConfig
	case issue.EntryNotFoundId, issue.MissingDependencyId, issue.SyntaxErrorId, issue.DependencyCycleId:
		code = exitResolve
	}
	return &ExitError{Code: code, Err: ae}
}

// actionableError returns err as an ActionableError linked to the catalog.
// It reports false for errors jsroll has nothing to add to.
func actionableError(err error) (*issue.ActionableError, bool) {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae, true
	}

	var (
		missing    *bundler.MissingDependencyError
		syntax     *bundler.SyntaxError
		cyclic     *bundler.CyclicDependencyError
		graphCycle *depgraph.CycleError
		rejected   *pipeline.TestsRejectedError
		notFound   *compiler.NotFoundError
		failed     *compiler.CompileFailedError
		format     *emit.InvalidFormatError
	)

	ec := issue.NewErrorContext().Wrap(err)
	switch {
	case errors.As(err, &missing) && missing.Requirer == "":
		ec.WithOperation("resolve bundle").
			WithSuggestion("Entry roots are relative to source_dir").
			WithIssue(issue.EntryNotFoundId)
	case errors.As(err, &missing):
		ec.WithOperation("resolve bundle").
			WithSuggestion(fmt.Sprintf("Create %s or fix the reference %q", missing.Path, missing.Reference)).
			WithIssue(issue.MissingDependencyId)
	case errors.As(err, &syntax):
		ec.WithOperation("check syntax").
			WithSuggestion("Run without --syntax-check to build anyway").
			WithIssue(issue.SyntaxErrorId)
	case errors.As(err, &rejected):
		ec.WithOperation("verify tests").
			WithIssue(issue.SyntaxErrorId)
	case errors.As(err, &cyclic):
		ec.WithOperation("resolve bundle").
			WithSuggestion("Break the loop " + strings.Join(cyclic.Cycle, " -> ")).
			WithIssue(issue.DependencyCycleId)
	case errors.As(err, &graphCycle):
		ec.WithOperation("sort dependency graph").
			WithIssue(issue.DependencyCycleId)
	case errors.As(err, &notFound):
		ec.WithOperation("run compiler").
			WithSuggestion("Set compiler.jar in jsroll.cue").
			WithSuggestion("Use --compilation-level NONE to skip compression").
			WithIssue(issue.CompilerNotFoundId)
	case errors.As(err, &failed):
		ec.WithOperation("compile bundle").
			WithIssue(issue.CompileFailedId)
	case errors.As(err, &format):
		ec.WithOperation("write references").
			WithSuggestion("Use one of: " + strings.Join(emit.FormatNames(), ", ")).
			WithIssue(issue.InvalidFormatId)
	case errors.Is(err, fs.ErrPermission):
		ec.WithOperation("access project files").
			WithIssue(issue.PermissionDeniedId)
	default:
		return nil, false
	}
	return ec.Build(), true
}

// errorHandler renders errors returned by a command. Actionable errors get
// their suggestions, and in verbose mode the linked catalog issue.
func (a *App) errorHandler(w io.Writer, _ fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), ae.Format(a.verbose))
	if !a.verbose {
		return
	}
	if catalog := ae.CatalogIssue(); catalog != nil {
		rendered, renderErr := catalog.Render(a.style)
		if renderErr == nil {
			fmt.Fprint(w, rendered)
		}
	}
}
