// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

// Package render styles the plan/why command's human-readable output. It
// is never used by the core's log output, which stays structured (zap).
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	stale   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	fresh   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A"))
	heading = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	step    = lipgloss.NewStyle().PaddingLeft(2)
	reason  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107"))
)

// Plan renders a target's step pipeline for the "plan" command's dry-run
// output: one heading line, then one indented line per step description.
func Plan(target string, steps []string) string {
	var b strings.Builder
	fmt.Fprintln(&b, heading.Render(target))
	if len(steps) == 0 {
		fmt.Fprintln(&b, step.Render(fresh.Render("up to date — no steps to run")))
		return b.String()
	}
	for i, s := range steps {
		fmt.Fprintln(&b, step.Render(fmt.Sprintf("%d. %s", i+1, s)))
	}
	return b.String()
}

// Why renders the "why" command's stale-reason report for one output: a
// colorized verdict line plus, when stale, the reason.
func Why(output, verdict, why string) string {
	if why == "" {
		return fmt.Sprintf("%s  %s", output, fresh.Render(verdict))
	}
	return fmt.Sprintf("%s  %s — %s", output, stale.Render(verdict), reason.Render(why))
}
