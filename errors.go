// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "fmt"

// ConfigurationError covers a missing required tool path, an unknown
// attribute, or an unknown rule type. User-visible, non-retryable.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Msg)
}
func (e *ConfigurationError) Unwrap() error { return e.Err }

// AssemblyError covers duplicate target registration, a cyclic dependency,
// or a duplicate rule type. Fatal, non-retryable, references the offending
// target.
type AssemblyError struct {
	Target string
	Msg    string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly error for %q: %s", e.Target, e.Msg)
}

// ExecutionError wraps a failed step, including the owning target and the
// step's short-name.
type ExecutionError struct {
	Target   string
	StepName string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution error: target %q step %q: %v", e.Target, e.StepName, e.Err)
}
func (e *ExecutionError) Unwrap() error { return e.Err }

// OverflowError is a classified ExecutionError: the dexer reported more
// method/field references than the target format allows. Rendered with the
// failed step, the limit exceeded, and the offending input, wrapping the
// underlying ExecutionError. StepRunner sets Output to the failed step's
// Describe() text and leaves OffendingIn empty; it does not identify which
// input overflowed.
type OverflowError struct {
	Output      string
	Limit       string
	OffendingIn string
	Err         error
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf(
		"dex overflow building %q: exceeded %s (likely offending input: %s): %v",
		e.Output, e.Limit, e.OffendingIn, e.Err,
	)
}
func (e *OverflowError) Unwrap() error { return e.Err }
