// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"context"
	"regexp"
)

// overflowPattern matches the classic "too many method references" /
// "field count exceeded" dexer diagnostics that distinguish a dex-overflow
// from an ordinary tool failure.
var overflowPattern = regexp.MustCompile(`(?i)(too\s+many\s+(method|field)\s+references|(method|field|reference)\s+(id\s+not\s+in\s+\[0, 0xffff\]|count.*(exceed|overflow)|overflow))`)

// StepRunner runs an ordered sequence of steps for one logical work item,
// propagating the first failure and attaching the owning target to it. It
// has no retry policy — retries are a higher-layer concern.
type StepRunner struct {
	OwningTarget string // optional; empty for work items with no owning rule
}

// Run executes steps in order, stopping at the first failure. On failure it
// wraps the error in an ExecutionError (classified as OverflowError when the
// failed step's output matches the dex-overflow pattern).
func (sr StepRunner) Run(ctx context.Context, steps []Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return &ExecutionError{Target: sr.OwningTarget, StepName: step.ShortName(), Err: err}
		}
		result := step.Execute(ctx)
		if result.Succeeded() {
			continue
		}
		return sr.classify(step, result.Err)
	}
	return nil
}

func (sr StepRunner) classify(step Step, err error) error {
	if overflowPattern.MatchString(err.Error()) {
		return &OverflowError{
			Output: step.Describe(),
			Limit:  "dex method/field reference limit",
			Err:    &ExecutionError{Target: sr.OwningTarget, StepName: step.ShortName(), Err: err},
		}
	}
	return &ExecutionError{Target: sr.OwningTarget, StepName: step.ShortName(), Err: err}
}
