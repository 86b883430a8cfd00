// Package errtypes defines the failure taxonomy of the orchestrator. Every
// failure that aborts a pipeline run before the remote test command is
// invoked is one of the typed errors below; a test command that ran to
// completion with a non-zero status is NOT an error of this package (see
// TestFailure).
package errtypes

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates a missing or contradictory environment input.
// It is fatal and never retried.
type ConfigurationError struct {
	Variable string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Variable, e.Reason)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NewConfigurationError returns a ConfigurationError naming the offending
// environment variable.
func NewConfigurationError(variable, reason string) error {
	return &ConfigurationError{Variable: variable, Reason: reason}
}

// PodNotFoundError indicates the label selector matched zero pods. The caller
// may retry after confirming deployment health; this package never does.
type PodNotFoundError struct {
	Namespace string
	Selector  string
}

func (e *PodNotFoundError) Error() string {
	return fmt.Sprintf("no pod matching %q in namespace %q", e.Selector, e.Namespace)
}

// StagingError indicates preparing the pod for the test run failed, either
// creating the remote directory or transferring the artifact into it. Partial
// state on the remote pod is possible and must be treated as unreliable.
type StagingError struct {
	// Step names the staging step that failed, e.g. "create remote dir".
	Step string
	// Path is the local artifact or remote directory the step operated on.
	Path string
	Err  error
}

func (e *StagingError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.Path, e.Err)
}

func (e *StagingError) Unwrap() error { return e.Err }

// ExecutionError indicates the remote invocation mechanism itself failed,
// e.g. API connectivity lost mid-call. Distinct from a completed command
// reporting a non-zero exit code.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("remote execution: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// TestFailure carries a completed test run's non-zero exit code across the
// CLI boundary so the process can exit with the remote command's own status.
// It is a reportable outcome, not an infrastructure failure.
type TestFailure struct {
	ExitCode int
}

func (e *TestFailure) Error() string {
	return fmt.Sprintf("tests failed with exit code %d", e.ExitCode)
}

// IsInfrastructure reports whether err belongs to the fatal side of the
// taxonomy: configuration, pod lookup, staging or execution failures. A
// TestFailure is not infrastructure.
func IsInfrastructure(err error) bool {
	var (
		confErr  *ConfigurationError
		podErr   *PodNotFoundError
		stageErr *StagingError
		execErr  *ExecutionError
	)
	return errors.As(err, &confErr) ||
		errors.As(err, &podErr) ||
		errors.As(err, &stageErr) ||
		errors.As(err, &execErr)
}

// TestExitCode extracts the remote exit code from a TestFailure, returning
// ok=false for any other error.
func TestExitCode(err error) (int, bool) {
	var tf *TestFailure
	if errors.As(err, &tf) {
		return tf.ExitCode, true
	}
	return 0, false
}
