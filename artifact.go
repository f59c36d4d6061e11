// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "fmt"

// Artifact is a typed reference to a file: either unbound (a declared
// output of an action not yet wired to a source) or bound to a concrete
// SourcePath. It is the unit of dependency between rules.
type Artifact struct {
	name   string // declared output name, stable across bind/unbind
	bound  bool
	source SourcePath
}

// NewUnboundArtifact declares an output artifact that some action will bind.
func NewUnboundArtifact(name string) *Artifact {
	return &Artifact{name: name}
}

// Bind wires a an artifact to the source path that produces it. Binding the
// same artifact twice is a programmer error — callers must check IsBound.
func (a *Artifact) Bind(source SourcePath) {
	if a.bound {
		panic(fmt.Sprintf("artifact %q is already bound", a.name))
	}
	a.source = source
	a.bound = true
}

// IsBound reports whether the artifact has been wired to a source.
func (a *Artifact) IsBound() bool { return a.bound }

// Name returns the artifact's declared output name.
func (a *Artifact) Name() string { return a.name }

// Source returns the artifact's SourcePath and true once bound.
func (a *Artifact) Source() (SourcePath, bool) {
	if !a.bound {
		return SourcePath{}, false
	}
	return a.source, true
}

// OutputArtifact wraps an Artifact that a particular action promises to
// produce. It exists as a distinct type so the rule-key hasher and the
// command-line-args bundle can recognize "this is an output I own" instead
// of "this is an arbitrary input".
type OutputArtifact struct {
	Artifact *Artifact
	Path     string // resolved output path, relative to the build output root
}

// NewOutputArtifact binds a fresh unbound artifact to path under the given
// owning target and returns the OutputArtifact wrapper.
func NewOutputArtifact(owner Target, name, path string) OutputArtifact {
	a := NewUnboundArtifact(name)
	a.Bind(NewBuildTargetSource(owner, name))
	return OutputArtifact{Artifact: a, Path: path}
}

// ArtifactSet is an unordered collection of produced outputs, keyed by
// output path — the shape the action cache interface stores and fetches.
type ArtifactSet map[string][]byte
