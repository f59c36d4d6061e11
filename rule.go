// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

// BuildContext is what a Rule's Factory receives to materialize its steps.
// It exposes only the frozen resolver (read-only by the time factories
// run) so a description can look up dependency rules' declared outputs
// without being able to mutate the DAG mid-assembly.
type BuildContext struct {
	Resolver *Resolver
	OutRoot  string // root directory under which output paths are resolved
}

// RuleKeyInput is one named, typed contribution to a rule's key: an
// attribute value plus its declared kind, or an explicit extra
// contribution a description adds beyond its schema'd attributes.
type RuleKeyInput struct {
	Name  string
	Kind  AttrKind
	Value AttrValue
}

// RuleFactory builds a rule's steps and declares its output paths, given a
// BuildContext. Returned steps run in the returned order for this rule
// alone; ordering across rules is governed by the resolver/planner, not
// here.
type RuleFactory func(ctx *BuildContext) (steps []Step, outputs []OutputArtifact, err error)

// Rule is an immutable node in the build DAG: a build target, its
// dependencies, the inputs that feed its rule key, and a factory that lazily
// produces its steps. Rules are created during DAG assembly and are
// immutable thereafter.
type Rule struct {
	Type    string // rule-type name, e.g. "python_test"
	Target  Target
	Deps    []Target // declared dependencies
	Extra   []Target // extra dependencies added by the description itself
	Inputs  []RuleKeyInput
	Factory RuleFactory

	// CmdArgs, when non-nil, is included in the rule key in addition to
	// Inputs. Not every rule has a command line (e.g. a metadata-only rule
	// might not).
	CmdArgs *CmdArgs
}

// AllDeps returns Deps and Extra concatenated, the resolver's transitive
// closure walk unit.
func (r Rule) AllDeps() []Target {
	out := make([]Target, 0, len(r.Deps)+len(r.Extra))
	out = append(out, r.Deps...)
	out = append(out, r.Extra...)
	return out
}
