// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "context"

// StepResult is the outcome of executing one Step.
type StepResult struct {
	Err error // nil on success
}

// Succeeded reports whether the step completed without error.
func (r StepResult) Succeeded() bool { return r.Err == nil }

// Step is the smallest executable unit in the build: a description plus an
// Execute contract. Steps are pure building blocks — no caching, no
// concurrency of their own. They are transient: created during rule
// materialization, discarded after execution.
type Step interface {
	// ShortName is a stable, log-friendly identifier (e.g. "dex", "xz",
	// "mkdir") used for rule-key contribution and failure classification.
	ShortName() string
	// Describe is a human-readable one-line summary for verbose/dry-run
	// output.
	Describe() string
	// Execute runs the step. Implementations must be safe to cancel via
	// ctx; cancellation is best-effort for any external process already
	// started.
	Execute(ctx context.Context) StepResult
	// RuleKeyParams returns the parameters of this step that should
	// contribute to the rule key — typically a stable subset of the step's
	// own fields, not every field (e.g. not temp-file paths that vary run
	// to run).
	RuleKeyParams() map[string]string
}
