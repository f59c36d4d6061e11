// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

// Package descriptions registers the concrete rule types this build core
// ships with. Each file's init() calls forge.DefaultRegistry.MustRegister,
// the same discover-at-import-time idiom used for plugin registration.
package descriptions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/foundryci/forge"
)

func init() {
	forge.DefaultRegistry.MustRegister(pythonTest{})
}

// pythonTest implements the python_test rule type: a unit test over a set
// of Python sources, with an optional list of modules under test used to
// generate a coverage-scoping source file, plus a PEX-flavored binary
// sibling so the test can also be run as a standalone executable.
type pythonTest struct{}

func (pythonTest) RuleType() string { return "python_test" }

func (pythonTest) ArgSchema() map[string]forge.AttrKind {
	return map[string]forge.AttrKind{
		"srcs":            forge.KindPathMap,
		"resources":       forge.KindPathMap,
		"baseModule":      forge.KindScalar,
		"contacts":        forge.KindSet,
		"labels":          forge.KindSet,
		"sourceUnderTest": forge.KindTargetRefs,
	}
}

func (d pythonTest) CreateRule(target forge.Target, args forge.Arg, resolver *forge.Resolver) (forge.Rule, error) {
	srcs := args.PathMap("srcs")
	resources := args.PathMap("resources")
	baseModule := args.Scalar("baseModule")
	sourceUnderTest := args.TargetRefs("sourceUnderTest")

	binaryTarget := target.WithFlavors("binary")
	if err := resolver.AddToIndex(d.binaryRule(binaryTarget, target, srcs, resources, baseModule)); err != nil {
		return forge.Rule{}, err
	}

	modulesListName := target.Name + "_test_modules.py"
	modulesListTarget := target.WithFlavors("test_module_list")
	if err := resolver.AddToIndex(d.moduleListRule(modulesListTarget, sourceUnderTest, modulesListName)); err != nil {
		return forge.Rule{}, err
	}

	inputs := []forge.RuleKeyInput{
		{Name: "srcs", Kind: forge.KindPathMap, Value: args["srcs"]},
		{Name: "resources", Kind: forge.KindPathMap, Value: args["resources"]},
		{Name: "baseModule", Kind: forge.KindScalar, Value: args["baseModule"]},
		{Name: "contacts", Kind: forge.KindSet, Value: args["contacts"]},
		{Name: "labels", Kind: forge.KindSet, Value: args["labels"]},
		{Name: "sourceUnderTest", Kind: forge.KindTargetRefs, Value: args["sourceUnderTest"]},
	}

	return forge.Rule{
		Type:   "python_test",
		Target: target,
		Deps:   sourcePathTargets(srcs),
		Extra:  []forge.Target{binaryTarget, modulesListTarget},
		Inputs: inputs,
		Factory: func(ctx *forge.BuildContext) ([]forge.Step, []forge.OutputArtifact, error) {
			out := forge.NewOutputArtifact(target, "test-report.xml", target.Name+"-report.xml")
			argv := []string{"python-test-runner", "--base-module", baseModule, "--report", out.Path}
			for path := range srcs {
				argv = append(argv, path)
			}
			step := &forge.RunProgramStep{Name: "python-test", Argv: argv}
			return []forge.Step{step}, []forge.OutputArtifact{out}, nil
		},
	}, nil
}

func (pythonTest) binaryRule(binaryTarget, testTarget forge.Target, srcs, resources map[string]forge.SourcePath, baseModule string) forge.Rule {
	return forge.Rule{
		Type:   "python_test#binary",
		Target: binaryTarget,
		Deps:   sourcePathTargets(srcs),
		Factory: func(ctx *forge.BuildContext) ([]forge.Step, []forge.OutputArtifact, error) {
			out := forge.NewOutputArtifact(binaryTarget, "pex", binaryTarget.Name+".pex")
			argv := []string{"pex-builder", "--base-module", baseModule, "--out", out.Path}
			for path := range srcs {
				argv = append(argv, "--src", path)
			}
			for path := range resources {
				argv = append(argv, "--resource", path)
			}
			return []forge.Step{&forge.RunProgramStep{Name: "pex-build", Argv: argv}}, []forge.OutputArtifact{out}, nil
		},
	}
}

// moduleListRule synthesizes the generated test-modules-list source: a
// Python literal assigning TEST_MODULES to the sorted dotted module names of
// sourceUnderTest, four-space indented, no trailing newline.
func (pythonTest) moduleListRule(listTarget forge.Target, sourceUnderTest []forge.Target, fileName string) forge.Rule {
	return forge.Rule{
		Type:   "python_test#test_module_list",
		Target: listTarget,
		Factory: func(ctx *forge.BuildContext) ([]forge.Step, []forge.OutputArtifact, error) {
			out := forge.NewOutputArtifact(listTarget, "modules-list", fileName)
			content := renderTestModulesList(sourceUnderTest)
			step := &forge.WriteFileStep{Path: out.Path, Content: []byte(content)}
			return []forge.Step{step}, []forge.OutputArtifact{out}, nil
		},
	}
}

func renderTestModulesList(targets []forge.Target) string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = pythonModuleName(t)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("TEST_MODULES = [\n")
	for _, n := range names {
		fmt.Fprintf(&b, "    %q,\n", n)
	}
	b.WriteString("]")
	return b.String()
}

// pythonModuleName derives a dotted module path from a target's cell-
// relative directory and name, e.g. //my/pkg:mod -> "my.pkg.mod".
func pythonModuleName(t forge.Target) string {
	parts := strings.Split(strings.Trim(t.Path, "/"), "/")
	if t.Path == "" {
		parts = nil
	}
	parts = append(parts, t.Name)
	return strings.Join(parts, ".")
}

func sourcePathTargets(m map[string]forge.SourcePath) []forge.Target {
	var out []forge.Target
	for _, sp := range m {
		if bt, ok := sp.BuildTarget(); ok {
			out = append(out, bt.Target)
		}
	}
	return out
}
