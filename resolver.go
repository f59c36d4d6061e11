// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TargetSpec is the raw rule-type name and attribute bag that would come
// from parsing a build file — parsing itself is out of scope for this
// package. Callers (or a test fixture) supply these via a TargetProvider.
type TargetSpec struct {
	RuleType string
	Args     Arg
}

// TargetProvider looks up the raw spec for a target. Parsing build files
// into these specs is an external collaborator's job.
type TargetProvider interface {
	Lookup(t Target) (TargetSpec, bool)
}

// Resolver is the DAG assembler: an indexed mapping from target to rule,
// append-only within one build. It is mutated only during DAG assembly
// (single-threaded per rule's CreateRule; concurrent RequireRule calls are
// safe, and those for the same target are deduplicated); it becomes
// read-only once Freeze is called, before parallel execution begins.
type Resolver struct {
	registry *DescriptionRegistry
	provider TargetProvider

	mu       sync.RWMutex
	index    map[string]*Rule
	frozen   bool
	onStack  map[string]bool
	stackSeq []string // for error messages

	group singleflight.Group
}

// NewResolver returns a Resolver backed by registry and provider.
func NewResolver(registry *DescriptionRegistry, provider TargetProvider) *Resolver {
	return &Resolver{
		registry: registry,
		provider: provider,
		index:    make(map[string]*Rule),
		onStack:  make(map[string]bool),
	}
}

// AddToIndex inserts a rule directly — used by descriptions to register
// auxiliary rules they synthesize (e.g. a test's PEX-flavored binary
// sibling, or a generated test-modules-list rule). Duplicate targets are an
// AssemblyError.
func (r *Resolver) AddToIndex(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return &AssemblyError{Target: rule.Target.Canonical(), Msg: "resolver is frozen; cannot add rules after assembly"}
	}
	key := rule.Target.Canonical()
	if _, exists := r.index[key]; exists {
		return &AssemblyError{Target: key, Msg: "duplicate rule registration for target"}
	}
	ruleCopy := rule
	r.index[key] = &ruleCopy
	return nil
}

// RequireRule ensures the target's description has been invoked, memoizing
// the result. Concurrent calls for the same target collapse into a single
// CreateRule invocation via singleflight.
func (r *Resolver) RequireRule(target Target) (*Rule, error) {
	key := target.Canonical()

	r.mu.RLock()
	if rule, ok := r.index[key]; ok {
		r.mu.RUnlock()
		return rule, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(key, func() (any, error) {
		// Re-check under the group: another caller may have added this rule
		// directly via AddToIndex while we waited to enter Do.
		r.mu.RLock()
		if rule, ok := r.index[key]; ok {
			r.mu.RUnlock()
			return rule, nil
		}
		r.mu.RUnlock()

		spec, ok := r.provider.Lookup(target)
		if !ok {
			return nil, &AssemblyError{Target: key, Msg: "no target spec available"}
		}

		rule, err := r.registry.Create(target, spec.RuleType, spec.Args, r)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.frozen {
			return nil, &AssemblyError{Target: key, Msg: "resolver is frozen; cannot add rules after assembly"}
		}
		if existing, exists := r.index[key]; exists {
			// A sibling rule (e.g. synthesized by another description's
			// CreateRule) already registered this exact target.
			return existing, nil
		}
		ruleCopy := rule
		r.index[key] = &ruleCopy
		return &ruleCopy, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Rule), nil
}

// GetAllRules resolves each of targets (invoking descriptions as needed)
// and returns them in the same order as the input, deduplicated by target.
func (r *Resolver) GetAllRules(targets []Target) ([]*Rule, error) {
	seen := make(map[string]bool, len(targets))
	out := make([]*Rule, 0, len(targets))
	for _, t := range targets {
		key := t.Canonical()
		if seen[key] {
			continue
		}
		seen[key] = true
		rule, err := r.RequireRule(t)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// TransitiveClosure resolves targets and walks AllDeps recursively,
// returning every rule reachable from roots (each appearing once, in
// post-order: every rule after its dependencies). Cycles are detected as the walk encounters a target
// currently on the assembly stack and reported as a fatal AssemblyError.
func (r *Resolver) TransitiveClosure(roots []Target) ([]*Rule, error) {
	visited := make(map[string]bool)
	var order []*Rule

	var visit func(t Target) error
	visit = func(t Target) error {
		key := t.Canonical()

		r.mu.Lock()
		if r.onStack[key] {
			cycle := append(append([]string{}, r.stackSeq...), key)
			r.mu.Unlock()
			return &AssemblyError{Target: key, Msg: fmt.Sprintf("cyclic dependency: %v", cycle)}
		}
		r.onStack[key] = true
		r.stackSeq = append(r.stackSeq, key)
		r.mu.Unlock()

		defer func() {
			r.mu.Lock()
			delete(r.onStack, key)
			if n := len(r.stackSeq); n > 0 {
				r.stackSeq = r.stackSeq[:n-1]
			}
			r.mu.Unlock()
		}()

		rule, err := r.RequireRule(t)
		if err != nil {
			return err
		}
		if visited[key] {
			return nil
		}
		visited[key] = true

		for _, dep := range rule.AllDeps() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		order = append(order, rule)
		return nil
	}

	for _, root := range roots {
		if err := visit(root); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Freeze marks the resolver read-only. Called once DAG assembly completes
// and before parallel step execution begins.
func (r *Resolver) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}
