// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "fmt"

// Description is the factory and schema for one rule type. Variants —
// binary, library, test, bundle, package, prebuilt, precompiled-header,
// etc. — all implement this one small interface; the open set of rule
// types is what makes the registry a plugin point rather than a closed
// switch statement.
type Description interface {
	// RuleType is the build-rule type name this description handles, e.g.
	// "python_test", "cxx_library", "genrule".
	RuleType() string
	// ArgSchema declares the attributes this description recognizes.
	// Create rejects any key in the raw Arg that isn't in this schema.
	ArgSchema() map[string]AttrKind
	// CreateRule validates args against ArgSchema (handled by the registry
	// before this is called) and builds the rule. Resolver is passed so the
	// description can synthesize and register auxiliary rules (e.g. the
	// binary-flavored PEX sibling of a test).
	CreateRule(target Target, args Arg, resolver *Resolver) (Rule, error)
}

// DescriptionRegistry owns the set of known rule types and converts raw
// attribute bags into rules.
type DescriptionRegistry struct {
	byName map[string]Description
}

// NewDescriptionRegistry returns an empty registry.
func NewDescriptionRegistry() *DescriptionRegistry {
	return &DescriptionRegistry{byName: make(map[string]Description)}
}

// DefaultRegistry is the process-wide registry populated by each
// descriptions/*.go file's init(). Callers that want an isolated registry
// (tests, alternate rule-type sets) construct their own via
// NewDescriptionRegistry instead.
var DefaultRegistry = NewDescriptionRegistry()

// Register inserts a description. It is an AssemblyError to register
// two descriptions under the same rule-type name.
func (reg *DescriptionRegistry) Register(d Description) error {
	name := d.RuleType()
	if _, exists := reg.byName[name]; exists {
		return &AssemblyError{Target: name, Msg: "rule type already registered"}
	}
	reg.byName[name] = d
	return nil
}

// MustRegister is Register, panicking on error — used from each
// descriptions/*.go file's init() in the style of a compile-time plugin
// registration.
func (reg *DescriptionRegistry) MustRegister(d Description) {
	if err := reg.Register(d); err != nil {
		panic(err)
	}
}

// LookupByName returns the description for ruleType, or a ConfigurationError
// with a human-readable message if absent.
func (reg *DescriptionRegistry) LookupByName(ruleType string) (Description, error) {
	d, ok := reg.byName[ruleType]
	if !ok {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("unknown rule type %q", ruleType)}
	}
	return d, nil
}

// Create validates rawArgs against the description's schema — rejecting any
// key that isn't declared — then invokes the description. Absent attributes
// are not filled in here; Arg's accessors return the empty value for them.
func (reg *DescriptionRegistry) Create(target Target, ruleType string, rawArgs Arg, resolver *Resolver) (Rule, error) {
	d, err := reg.LookupByName(ruleType)
	if err != nil {
		return Rule{}, err
	}

	schema := d.ArgSchema()
	for key := range rawArgs {
		if _, ok := schema[key]; !ok {
			return Rule{}, &ConfigurationError{
				Msg: fmt.Sprintf("%s: unknown attribute %q", ruleType, key),
			}
		}
	}

	return d.CreateRule(target, rawArgs, resolver)
}
