// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"fmt"
	"sort"
	"strings"
)

// Target is a fully-qualified build target: //cell/path:name, plus an
// ordered set of flavors that select variants (e.g. "binary", "test_module").
// Two targets with the same base but different flavor sets are distinct
// rules.
type Target struct {
	Cell    string
	Path    string
	Name    string
	Flavors []string
}

// NewTarget builds a Target with its flavor set normalized (sorted, deduped).
func NewTarget(cell, path, name string, flavors ...string) Target {
	return Target{Cell: cell, Path: path, Name: name, Flavors: sortedUniqueFlavors(flavors)}
}

// WithFlavors returns a copy of t with the given flavors added, keeping the
// same base. Synthesized targets (e.g. the PEX sibling of a python_test)
// must only ever differ from their base by flavor set.
func (t Target) WithFlavors(flavors ...string) Target {
	merged := append(append([]string{}, t.Flavors...), flavors...)
	t.Flavors = sortedUniqueFlavors(merged)
	return t
}

// Base returns t with its flavor set cleared.
func (t Target) Base() Target {
	t.Flavors = nil
	return t
}

// Canonical renders the target's stable textual form: base + sorted flavor
// set. This is the only representation a rule key may hold of a target that
// isn't its own.
func (t Target) Canonical() string {
	base := fmt.Sprintf("//%s:%s", strings.Trim(t.Cell+"/"+t.Path, "/"), t.Name)
	if len(t.Flavors) == 0 {
		return base
	}
	return base + "#" + strings.Join(t.Flavors, ",")
}

func (t Target) String() string { return t.Canonical() }

func sortedUniqueFlavors(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, f := range in {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
