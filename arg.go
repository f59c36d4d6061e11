// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "sort"

// AttrKind tags the shape of an attribute value a description expects.
type AttrKind int

const (
	KindScalar AttrKind = iota
	KindList
	KindSet
	KindPathMap
	KindTargetRefs
)

// AttrValue is a typed attribute value: scalars, ordered sequences, sets,
// mappings from path to source path, or target references. Exactly one of
// the fields matching its Kind is populated.
type AttrValue struct {
	Kind    AttrKind
	Scalar  string
	List    []string
	Set     []string
	PathMap map[string]SourcePath
	Targets []Target
}

// Arg is a typed record of a rule's attributes: named values as declared by
// the owning description's schema. Construction-time validation (unknown
// keys, missing required keys) happens in the description registry, not
// here — Arg itself is just the validated bag.
type Arg map[string]AttrValue

// Scalar returns the named scalar attribute, or the empty string if absent.
// Optional scalar attributes default to "" rather than propagating absence.
func (a Arg) Scalar(name string) string {
	if v, ok := a[name]; ok && v.Kind == KindScalar {
		return v.Scalar
	}
	return ""
}

// List returns the named ordered-sequence attribute, or nil if absent.
// Optional list/set/map attributes default to the empty collection.
func (a Arg) List(name string) []string {
	if v, ok := a[name]; ok && v.Kind == KindList {
		return v.List
	}
	return nil
}

// Set returns the named set attribute in canonical sorted order, or nil.
func (a Arg) Set(name string) []string {
	if v, ok := a[name]; ok && v.Kind == KindSet {
		out := append([]string(nil), v.Set...)
		sort.Strings(out)
		return out
	}
	return nil
}

// PathMap returns the named path→source-path attribute, or nil if absent.
func (a Arg) PathMap(name string) map[string]SourcePath {
	if v, ok := a[name]; ok && v.Kind == KindPathMap {
		return v.PathMap
	}
	return nil
}

// TargetRefs returns the named target-reference attribute, or nil if absent.
func (a Arg) TargetRefs(name string) []Target {
	if v, ok := a[name]; ok && v.Kind == KindTargetRefs {
		return v.Targets
	}
	return nil
}

// ScalarVal / ListVal / SetVal / PathMapVal / TargetRefsVal construct AttrValues of
// the matching kind, used by tests and description factories to build raw
// Args without reaching into the struct literal directly.
func ScalarVal(s string) AttrValue        { return AttrValue{Kind: KindScalar, Scalar: s} }
func ListVal(l ...string) AttrValue       { return AttrValue{Kind: KindList, List: l} }
func SetVal(s ...string) AttrValue        { return AttrValue{Kind: KindSet, Set: s} }
func TargetRefsVal(t ...Target) AttrValue { return AttrValue{Kind: KindTargetRefs, Targets: t} }
func PathMapVal(m map[string]SourcePath) AttrValue {
	return AttrValue{Kind: KindPathMap, PathMap: m}
}
