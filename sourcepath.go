// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

// SourcePath is a tagged variant referencing where a file comes from.
//
// A path source is a literal filesystem path relative to a cell root and is
// content-hashable directly. A build-target source is a reference to
// (target, output-name); for rule-key purposes it is represented by the
// target's canonical textual form and the output name only, never by recursively hashing the
// producing rule's outputs — this is what makes the rule-key cycle break
// correct by construction rather than by convention.
type SourcePath struct {
	// Exactly one of these is set.
	path        *PathSource
	buildTarget *BuildTargetSource
}

// PathSource is a literal filesystem path relative to a cell root.
type PathSource struct {
	CellRelative string
}

// BuildTargetSource references an output of another build target.
type BuildTargetSource struct {
	Target Target
	Output string
}

// NewPathSource wraps a literal filesystem path as a SourcePath.
func NewPathSource(cellRelative string) SourcePath {
	p := PathSource{CellRelative: cellRelative}
	return SourcePath{path: &p}
}

// NewBuildTargetSource wraps a (target, output) reference as a SourcePath.
func NewBuildTargetSource(target Target, output string) SourcePath {
	b := BuildTargetSource{Target: target, Output: output}
	return SourcePath{buildTarget: &b}
}

// IsPath reports whether sp is a literal path source.
func (sp SourcePath) IsPath() bool { return sp.path != nil }

// IsBuildTarget reports whether sp is a build-target source.
func (sp SourcePath) IsBuildTarget() bool { return sp.buildTarget != nil }

// Path returns the underlying PathSource and true, or the zero value and
// false if sp is not a path source.
func (sp SourcePath) Path() (PathSource, bool) {
	if sp.path == nil {
		return PathSource{}, false
	}
	return *sp.path, true
}

// BuildTarget returns the underlying BuildTargetSource and true, or the zero
// value and false if sp is not a build-target source.
func (sp SourcePath) BuildTarget() (BuildTargetSource, bool) {
	if sp.buildTarget == nil {
		return BuildTargetSource{}, false
	}
	return *sp.buildTarget, true
}

// Canonical renders sp's rule-key-relevant textual form. For a build-target
// source this is the target's canonical form plus the output name — never
// the referenced output's content or the producing rule's key.
func (sp SourcePath) Canonical() string {
	if p, ok := sp.Path(); ok {
		return "path:" + p.CellRelative
	}
	if b, ok := sp.BuildTarget(); ok {
		return "target:" + b.Target.Canonical() + "#" + b.Output
	}
	return ""
}
