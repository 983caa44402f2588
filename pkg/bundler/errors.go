// SPDX-License-Identifier: MPL-2.0

package bundler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingDependency is the sentinel error wrapped by MissingDependencyError.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrSyntax is the sentinel error wrapped by SyntaxError.
	ErrSyntax = errors.New("syntax error")
	// ErrCyclicDependency is the sentinel error wrapped by CyclicDependencyError.
	ErrCyclicDependency = errors.New("cyclic dependency")
)

type (
	// MissingDependencyError is returned when a directive references a file
	// that does not exist. Requirer is empty when the root itself is missing.
	MissingDependencyError struct {
		Requirer  string
		Reference string
		Path      string
		Line      int
	}

	// SyntaxError is returned when the syntax validator rejects a file.
	SyntaxError struct {
		Path string
	}

	// CyclicDependencyError is returned when a file transitively requires
	// itself. Cycle starts and ends with the same path.
	CyclicDependencyError struct {
		Cycle []string
	}
)

// Error implements the error interface.
func (e *MissingDependencyError) Error() string {
	if e.Requirer == "" {
		return fmt.Sprintf("root file does not exist: %s", e.Path)
	}
	return fmt.Sprintf("%s:%d requires non existing file: %s", e.Requirer, e.Line, e.Path)
}

// Unwrap returns ErrMissingDependency for errors.Is() compatibility.
func (e *MissingDependencyError) Unwrap() error { return ErrMissingDependency }

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax check rejected %s", e.Path)
}

// Unwrap returns ErrSyntax for errors.Is() compatibility.
func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Error implements the error interface.
func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCyclicDependency for errors.Is() compatibility.
func (e *CyclicDependencyError) Unwrap() error { return ErrCyclicDependency }
