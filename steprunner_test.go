// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"context"
	"errors"
	"testing"
)

type recordingStep struct {
	name string
	err  error
	ran  *[]string
}

func (s recordingStep) ShortName() string { return s.name }
func (s recordingStep) Describe() string  { return s.name }
func (s recordingStep) Execute(context.Context) StepResult {
	*s.ran = append(*s.ran, s.name)
	return StepResult{Err: s.err}
}
func (s recordingStep) RuleKeyParams() map[string]string { return nil }

func TestStepRunnerRunsStepsInOrder(t *testing.T) {
	var ran []string
	steps := []Step{
		recordingStep{name: "a", ran: &ran},
		recordingStep{name: "b", ran: &ran},
		recordingStep{name: "c", ran: &ran},
	}
	sr := StepRunner{OwningTarget: "//cell/a:r"}
	if err := sr.Run(context.Background(), steps); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := ran; len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("ran = %v, want [a b c]", got)
	}
}

func TestStepRunnerStopsAtFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	steps := []Step{
		recordingStep{name: "a", ran: &ran},
		recordingStep{name: "b", ran: &ran, err: boom},
		recordingStep{name: "c", ran: &ran},
	}
	sr := StepRunner{OwningTarget: "//cell/a:r"}
	err := sr.Run(context.Background(), steps)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(ran) != 2 {
		t.Errorf("ran = %v, want only [a b]", ran)
	}

	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error is not an *ExecutionError: %v", err)
	}
	if execErr.Target != "//cell/a:r" || execErr.StepName != "b" {
		t.Errorf("ExecutionError = %+v", execErr)
	}
}

func TestStepRunnerClassifiesOverflow(t *testing.T) {
	var ran []string
	overflow := errors.New("trouble writing output: Too many field references: 65600; max is 65536. Field count overflow.")
	steps := []Step{recordingStep{name: "dex", ran: &ran, err: overflow}}
	sr := StepRunner{OwningTarget: "//cell/a:r"}
	err := sr.Run(context.Background(), steps)

	var overflowErr *OverflowError
	if !errors.As(err, &overflowErr) {
		t.Fatalf("error is not an *OverflowError: %v", err)
	}
}

func TestStepRunnerRespectsCancellation(t *testing.T) {
	var ran []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	steps := []Step{recordingStep{name: "a", ran: &ran}}
	sr := StepRunner{}
	if err := sr.Run(ctx, steps); err == nil {
		t.Fatal("expected error for a cancelled context, got nil")
	}
	if len(ran) != 0 {
		t.Errorf("step executed despite cancelled context: %v", ran)
	}
}
