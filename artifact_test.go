// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "testing"

func TestArtifactBindThenSource(t *testing.T) {
	a := NewUnboundArtifact("out")
	if a.IsBound() {
		t.Fatal("fresh artifact reports bound")
	}
	owner := NewTarget("cell", "a", "r")
	a.Bind(NewBuildTargetSource(owner, "out"))
	if !a.IsBound() {
		t.Fatal("artifact did not report bound after Bind")
	}
	src, ok := a.Source()
	if !ok {
		t.Fatal("Source() returned false after Bind")
	}
	bt, ok := src.BuildTarget()
	if !ok || bt.Target.Canonical() != owner.Canonical() {
		t.Errorf("Source() = %+v, want build-target source for %s", src, owner.Canonical())
	}
}

func TestArtifactDoubleBindPanics(t *testing.T) {
	a := NewUnboundArtifact("out")
	a.Bind(NewPathSource("a/out.bin"))
	defer func() {
		if recover() == nil {
			t.Error("expected Bind on an already-bound artifact to panic")
		}
	}()
	a.Bind(NewPathSource("a/other.bin"))
}

func TestNewOutputArtifactBindsToOwningTarget(t *testing.T) {
	owner := NewTarget("cell", "a", "r")
	out := NewOutputArtifact(owner, "out", "out/r.bin")
	if out.Path != "out/r.bin" {
		t.Errorf("Path = %q, want out/r.bin", out.Path)
	}
	src, ok := out.Artifact.Source()
	if !ok {
		t.Fatal("output artifact is not bound")
	}
	bt, ok := src.BuildTarget()
	if !ok || bt.Target.Canonical() != owner.Canonical() || bt.Output != "out" {
		t.Errorf("Source() = %+v, want build-target source for %s#out", src, owner.Canonical())
	}
}
