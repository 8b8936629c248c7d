// SPDX-License-Identifier: MPL-2.0

// Package types defines the small value types shared by justci's packages:
// exit codes and the two names read from the CI environment. The names are
// forwarded verbatim to the task runner, so validation only rejects values
// that could never be meaningful (empty or whitespace-only).
//
// This package is a leaf dependency: it imports only the standard library.
package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidEngineName is the sentinel error wrapped by InvalidEngineNameError.
	ErrInvalidEngineName = errors.New("invalid engine name")
	// ErrInvalidTaskName is the sentinel error wrapped by InvalidTaskNameError.
	ErrInvalidTaskName = errors.New("invalid task name")
)

type (
	// EngineName identifies the container engine the task runner should prefer
	// (for example "docker" or "podman"). Whether the engine is recognized is
	// decided by the task runner, not here.
	EngineName string

	// InvalidEngineNameError is returned when an EngineName is empty or
	// whitespace-only.
	InvalidEngineNameError struct {
		Value EngineName
	}

	// TaskName is the name of the task-runner recipe to execute.
	TaskName string

	// InvalidTaskNameError is returned when a TaskName is empty or whitespace-only.
	InvalidTaskNameError struct {
		Value TaskName
	}
)

// String returns the string representation of the EngineName.
func (n EngineName) String() string { return string(n) }

// Validate returns an error if the EngineName is empty or whitespace-only.
func (n EngineName) Validate() error {
	if strings.TrimSpace(string(n)) == "" {
		return &InvalidEngineNameError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidEngineNameError.
func (e *InvalidEngineNameError) Error() string {
	return fmt.Sprintf("invalid engine name %q: must not be empty", e.Value)
}

// Unwrap returns ErrInvalidEngineName for errors.Is() compatibility.
func (e *InvalidEngineNameError) Unwrap() error { return ErrInvalidEngineName }

// String returns the string representation of the TaskName.
func (n TaskName) String() string { return string(n) }

// Validate returns an error if the TaskName is empty or whitespace-only.
func (n TaskName) Validate() error {
	if strings.TrimSpace(string(n)) == "" {
		return &InvalidTaskNameError{Value: n}
	}
	return nil
}

// Error implements the error interface for InvalidTaskNameError.
func (e *InvalidTaskNameError) Error() string {
	return fmt.Sprintf("invalid task name %q: must not be empty", e.Value)
}

// Unwrap returns ErrInvalidTaskName for errors.Is() compatibility.
func (e *InvalidTaskNameError) Unwrap() error { return ErrInvalidTaskName }
