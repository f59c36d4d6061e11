// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package descriptions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/foundryci/forge"
)

func TestDexMergeRejectsUnknownCompression(t *testing.T) {
	target := forge.NewTarget("cell", "a", "bin")
	args := forge.Arg{"secondaryDexCompression": forge.ScalarVal("gzip")}
	if _, err := (dexMerge{}).CreateRule(target, args, nil); err == nil {
		t.Fatal("expected an error for an unrecognized compression value")
	}
}

func fakeDexerScript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-dexer.sh")
	script := "#!/bin/sh\nshift\nout=\"$1\"\nshift\necho \"$@\" > \"$out\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake dexer: %v", err)
	}
	return path
}

func TestDexMergeProducesOneSecondaryDexPerSrc(t *testing.T) {
	reg := forge.NewDescriptionRegistry()
	resolver := forge.NewResolver(reg, nil)

	dep := forge.NewTarget("cell", "a", "lib")
	if err := resolver.AddToIndex(forge.Rule{Type: "cxx_library", Target: dep}); err != nil {
		t.Fatalf("AddToIndex: %v", err)
	}

	target := forge.NewTarget("cell", "a", "bin")
	args := forge.Arg{
		"srcs":    forge.TargetRefsVal(dep),
		"dexTool": forge.ScalarVal(fakeDexerScript(t)),
	}
	rule, err := (dexMerge{}).CreateRule(target, args, nil)
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	outRoot := t.TempDir()
	ctx := &forge.BuildContext{Resolver: resolver, OutRoot: outRoot}

	steps, outputs, err := rule.Factory(ctx)
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if len(outputs) != 1 {
		t.Fatalf("outputs = %v, want 1 entry", outputs)
	}
	if filepath.Base(outputs[0].Path) != "secondary-1.dex" {
		t.Errorf("output name = %q, want secondary-1.dex", filepath.Base(outputs[0].Path))
	}

	runner := forge.StepRunner{OwningTarget: target.Canonical()}
	if err := runner.Run(context.Background(), steps); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, err := os.Stat(outputs[0].Path); err != nil {
		t.Errorf("expected secondary dex output to exist: %v", err)
	}
}
