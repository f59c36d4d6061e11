// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeFakeDexer installs a shell script standing in for the real dexer
// binary: it writes its non-flag input paths, space-joined, to the file
// named by --out. Deterministic given the same inputs, which is all the
// planner's freshness logic needs.
func writeFakeDexer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-dexer.sh")
	script := "#!/bin/sh\nshift\nout=\"$1\"\nshift\necho \"$@\" > \"$out\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake dexer: %v", err)
	}
	return path
}

func staticHashes(hashes map[string]string) InputHashProvider {
	return func(input string) (string, bool) {
		h, ok := hashes[input]
		return h, ok
	}
}

func TestPlannerFirstRunBuildsAllOutputs(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}

	outA := filepath.Join(outDir, "secondary-1.dex")
	outB := filepath.Join(outDir, "secondary-2.dex")

	cfg := PlannerConfig{
		Multimap: func() (map[string][]string, error) {
			return map[string][]string{
				outA: {"a/one.class"},
				outB: {"a/two.class"},
			}, nil
		},
		InputHashes: staticHashes(map[string]string{
			"a/one.class": "h1",
			"a/two.class": "h2",
		}),
		SuccessDir: NewSuccessDir(filepath.Join(dir, "success")),
		Options:    DexOptions{DexerPath: writeFakeDexer(t)},
	}
	p := NewPlanner(cfg)

	result := p.Run(context.Background())
	if result.Err != nil {
		t.Fatalf("Run: %v", result.Err)
	}
	if len(result.Cached) != 0 {
		t.Errorf("first run reported %d cached outputs, want 0", len(result.Cached))
	}
	if len(result.Produced) != 2 {
		t.Fatalf("first run produced %d outputs, want 2", len(result.Produced))
	}
	for _, out := range []string{outA, outB} {
		if _, err := os.Stat(out); err != nil {
			t.Errorf("expected output %s to exist: %v", out, err)
		}
	}
}

func TestPlannerSecondRunWithUnchangedInputsIsFullyCached(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(outDir, "secondary-1.dex")

	cfg := PlannerConfig{
		Multimap: func() (map[string][]string, error) {
			return map[string][]string{out: {"a/one.class"}}, nil
		},
		InputHashes: staticHashes(map[string]string{"a/one.class": "h1"}),
		SuccessDir:  NewSuccessDir(filepath.Join(dir, "success")),
		Options:     DexOptions{DexerPath: writeFakeDexer(t)},
	}

	if res := NewPlanner(cfg).Run(context.Background()); res.Err != nil {
		t.Fatalf("first run: %v", res.Err)
	}

	result := NewPlanner(cfg).Run(context.Background())
	if result.Err != nil {
		t.Fatalf("second run: %v", result.Err)
	}
	if len(result.Produced) != 0 {
		t.Errorf("second run (no input change) rebuilt %d outputs, want 0", len(result.Produced))
	}
	if len(result.Cached) != 1 {
		t.Errorf("second run reported %d cached outputs, want 1", len(result.Cached))
	}
}

func TestPlannerRebuildsOnlyTheOutputWhoseInputsChanged(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	outA := filepath.Join(outDir, "secondary-1.dex")
	outB := filepath.Join(outDir, "secondary-2.dex")

	hashes := map[string]string{"a/one.class": "h1", "a/two.class": "h2"}
	cfg := PlannerConfig{
		Multimap: func() (map[string][]string, error) {
			return map[string][]string{outA: {"a/one.class"}, outB: {"a/two.class"}}, nil
		},
		InputHashes: staticHashes(hashes),
		SuccessDir:  NewSuccessDir(filepath.Join(dir, "success")),
		Options:     DexOptions{DexerPath: writeFakeDexer(t)},
	}
	if res := NewPlanner(cfg).Run(context.Background()); res.Err != nil {
		t.Fatalf("first run: %v", res.Err)
	}

	hashes["a/two.class"] = "h2-changed"
	result := NewPlanner(cfg).Run(context.Background())
	if result.Err != nil {
		t.Fatalf("second run: %v", result.Err)
	}
	if len(result.Produced) != 1 || result.Produced[0] != outB {
		t.Errorf("Produced = %v, want [%s]", result.Produced, outB)
	}
	if len(result.Cached) != 1 || result.Cached[0] != outA {
		t.Errorf("Cached = %v, want [%s]", result.Cached, outA)
	}
}

func TestPlannerRejectsUnknownOutputSuffix(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out", "weird.unknown")
	cfg := PlannerConfig{
		Multimap: func() (map[string][]string, error) {
			return map[string][]string{out: {"a/one.class"}}, nil
		},
		InputHashes: staticHashes(map[string]string{"a/one.class": "h1"}),
		SuccessDir:  NewSuccessDir(filepath.Join(dir, "success")),
		Options:     DexOptions{DexerPath: writeFakeDexer(t)},
	}
	result := NewPlanner(cfg).Run(context.Background())
	if result.Err == nil {
		t.Fatal("expected an error for an unrecognized output suffix, got nil")
	}
}

func TestXZSGroupKeyGroupsByDashPrefix(t *testing.T) {
	tests := map[string]string{
		"out/secondary-1.dex.jar.xzs":  "secondary",
		"out/secondary-12.dex.jar.xzs": "secondary",
		"out/other-3.dex.jar.xzs":      "other",
		"out/solo.dex.jar.xzs":         "solo",
	}
	for in, want := range tests {
		if got := xzsGroupKey(in); got != want {
			t.Errorf("xzsGroupKey(%q) = %q, want %q", in, got, want)
		}
	}
}
