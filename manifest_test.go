// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fakeManifestDescription struct{}

func (fakeManifestDescription) RuleType() string { return "genrule" }
func (fakeManifestDescription) ArgSchema() map[string]AttrKind {
	return map[string]AttrKind{
		"out":  KindScalar,
		"srcs": KindPathMap,
		"deps": KindTargetRefs,
		"tags": KindSet,
		"argv": KindList,
	}
}
func (fakeManifestDescription) CreateRule(target Target, args Arg, resolver *Resolver) (Rule, error) {
	return Rule{Type: "genrule", Target: target, Inputs: []RuleKeyInput{{Name: "out", Kind: KindScalar, Value: args["out"]}}}, nil
}

func TestLoadManifestParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	content := `
targets:
  "//cell/a:gen":
    type: genrule
    args:
      out: "gen.bin"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	spec, ok := m.Targets["//cell/a:gen"]
	require.True(t, ok, "missing target //cell/a:gen")
	require.Equal(t, "genrule", spec.Type)
}

func TestManifestProviderConvertsTypedAttrs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	content := `
targets:
  "//cell/a:dep":
    type: genrule
    args:
      out: "dep.bin"
  "//cell/a:gen":
    type: genrule
    args:
      out: "gen.bin"
      srcs:
        "a.txt": "cell/a/a.txt"
      deps:
        - "//cell/a:dep"
      tags:
        - "z"
        - "a"
      argv:
        - "-x"
        - "-y"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	reg := NewDescriptionRegistry()
	reg.MustRegister(fakeManifestDescription{})
	provider := &ManifestProvider{Manifest: m, Registry: reg}

	spec, ok := provider.Lookup(NewTarget("cell", "a", "gen"))
	if !ok {
		t.Fatal("Lookup returned false for a target present in the manifest")
	}
	if got := spec.Args.Scalar("out"); got != "gen.bin" {
		t.Errorf("out = %q, want gen.bin", got)
	}
	pathMap := spec.Args.PathMap("srcs")
	if len(pathMap) != 1 {
		t.Fatalf("srcs = %v, want 1 entry", pathMap)
	}
	p, ok := pathMap["a.txt"].Path()
	if !ok || p.CellRelative != "cell/a/a.txt" {
		t.Errorf("srcs[a.txt] = %+v, want cell/a/a.txt", p)
	}
	deps := spec.Args.TargetRefs("deps")
	if len(deps) != 1 || deps[0].Canonical() != "//cell/a:dep" {
		t.Errorf("deps = %v, want [//cell/a:dep]", deps)
	}
	if diff := cmp.Diff([]string{"a", "z"}, spec.Args.Set("tags")); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"-x", "-y"}, spec.Args.List("argv")); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestManifestProviderLookupMissReturnsFalse(t *testing.T) {
	m := &Manifest{Targets: map[string]RawTargetSpec{}}
	reg := NewDescriptionRegistry()
	provider := &ManifestProvider{Manifest: m, Registry: reg}
	if _, ok := provider.Lookup(NewTarget("cell", "a", "missing")); ok {
		t.Error("Lookup returned true for a target absent from the manifest")
	}
}
