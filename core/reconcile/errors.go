package reconcile

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	// ErrUnresolvableParent means a parent could not be found or created in the target.
	ErrUnresolvableParent = errors.New("unresolvable parent")

	// ErrRemoteRejected means the remote store answered a mutation with a non-success status.
	ErrRemoteRejected = errors.New("remote rejected")

	// ErrTransient means the remote store could not be reached (connection, timeout).
	ErrTransient = errors.New("transient network error")

	// ErrCycleDetected means a parent chain loops back on itself.
	ErrCycleDetected = errors.New("cycle detected")
)

// RemoteRejectedError carries the store's status and message for a failed call.
type RemoteRejectedError struct {
	Op         string
	Name       string
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *RemoteRejectedError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s %s rejected (status %d): %s", e.Op, e.Name, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s rejected (status %d): %s", e.Op, e.StatusCode, e.Message)
}

// Is implements errors.Is support
func (e *RemoteRejectedError) Is(target error) bool {
	return target == ErrRemoteRejected
}

// TransientError wraps a connection or timeout failure.
type TransientError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientError) Is(target error) bool {
	return target == ErrTransient
}

// UnresolvableParentError reports a parent that could not be ensured in the target.
type UnresolvableParentError struct {
	Parent   string
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *UnresolvableParentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parent %q not ensured after %d attempts: %v", e.Parent, e.Attempts, e.Err)
	}
	return fmt.Sprintf("parent %q not ensured after %d attempts", e.Parent, e.Attempts)
}

// Unwrap implements errors.Unwrap
func (e *UnresolvableParentError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *UnresolvableParentError) Is(target error) bool {
	return target == ErrUnresolvableParent
}

// CycleError is the warning raised when a parent chain loops.
// Record is the cycle-closing record that was placed at depth 0.
type CycleError struct {
	Record string
	Chain  []string
}

// Error implements the error interface
func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle in parent chain for %q: %s", e.Record, strings.Join(e.Chain, " -> "))
}

// Is implements errors.Is support
func (e *CycleError) Is(target error) bool {
	return target == ErrCycleDetected
}
