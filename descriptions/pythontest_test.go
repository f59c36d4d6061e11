// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package descriptions

import (
	"testing"

	"github.com/foundryci/forge"
)

func TestPythonModuleName(t *testing.T) {
	tests := []struct {
		target forge.Target
		want   string
	}{
		{forge.NewTarget("cell", "my/pkg", "mod"), "my.pkg.mod"},
		{forge.NewTarget("cell", "", "mod"), "mod"},
	}
	for _, tt := range tests {
		if got := pythonModuleName(tt.target); got != tt.want {
			t.Errorf("pythonModuleName(%v) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestRenderTestModulesListFormat(t *testing.T) {
	targets := []forge.Target{
		forge.NewTarget("cell", "my/pkg", "b"),
		forge.NewTarget("cell", "my/pkg", "a"),
	}
	want := "TEST_MODULES = [\n    \"my.pkg.a\",\n    \"my.pkg.b\",\n]"
	if got := renderTestModulesList(targets); got != want {
		t.Errorf("renderTestModulesList() = %q, want %q", got, want)
	}
}

func TestRenderTestModulesListEmpty(t *testing.T) {
	want := "TEST_MODULES = [\n]"
	if got := renderTestModulesList(nil); got != want {
		t.Errorf("renderTestModulesList(nil) = %q, want %q", got, want)
	}
}

func TestPythonTestCreateRuleRegistersAuxiliaryRules(t *testing.T) {
	reg := forge.NewDescriptionRegistry()
	resolver := forge.NewResolver(reg, mapProviderStub{})

	underTest := forge.NewTarget("cell", "my/pkg", "lib")
	target := forge.NewTarget("cell", "my/pkg", "test")
	args := forge.Arg{
		"srcs": forge.PathMapVal(map[string]forge.SourcePath{
			"test_lib.py": forge.NewPathSource("my/pkg/test_lib.py"),
		}),
		"baseModule":      forge.ScalarVal("my.pkg"),
		"sourceUnderTest": forge.TargetRefsVal(underTest),
	}

	rule, err := (pythonTest{}).CreateRule(target, args, resolver)
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	binaryTarget := target.WithFlavors("binary")
	if _, err := resolver.RequireRule(binaryTarget); err != nil {
		t.Errorf("binary sibling rule was not registered: %v", err)
	}
	modulesTarget := target.WithFlavors("test_module_list")
	if _, err := resolver.RequireRule(modulesTarget); err != nil {
		t.Errorf("test-modules-list rule was not registered: %v", err)
	}

	if len(rule.Extra) != 2 {
		t.Errorf("rule.Extra = %v, want 2 synthesized dependencies", rule.Extra)
	}
}

type mapProviderStub struct{}

func (mapProviderStub) Lookup(t forge.Target) (forge.TargetSpec, bool) {
	return forge.TargetSpec{}, false
}
