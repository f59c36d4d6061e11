// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package descriptions

import (
	"fmt"
	"path/filepath"

	"github.com/foundryci/forge"
)

func init() {
	forge.DefaultRegistry.MustRegister(dexMerge{})
}

// dexMerge implements an android_binary-style dex-merge rule: it takes a
// set of library rules as srcs and produces one or more secondary dex
// containers via the fan-out planner, the one rule type in this registry
// whose work is done by the planner rather than a fixed sequence. Its step
// list creates the secondary-dex output directory, then runs the planner.
type dexMerge struct{}

func (dexMerge) RuleType() string { return "android_binary" }

func (dexMerge) ArgSchema() map[string]forge.AttrKind {
	return map[string]forge.AttrKind{
		"srcs":                    forge.KindTargetRefs,
		"dexTool":                 forge.KindScalar,
		"minSdkVersion":           forge.KindScalar,
		"secondaryDexCompression": forge.KindScalar,
	}
}

func (dexMerge) CreateRule(target forge.Target, args forge.Arg, resolver *forge.Resolver) (forge.Rule, error) {
	srcs := args.TargetRefs("srcs")
	dexTool := args.Scalar("dexTool")
	compression := args.Scalar("secondaryDexCompression")
	switch compression {
	case "", "none", "xz", "xzs":
	default:
		return forge.Rule{}, &forge.ConfigurationError{
			Msg: fmt.Sprintf("android_binary %s: secondaryDexCompression must be one of none|xz|xzs, got %q", target.Canonical(), compression),
		}
	}

	inputs := []forge.RuleKeyInput{
		{Name: "srcs", Kind: forge.KindTargetRefs, Value: args["srcs"]},
		{Name: "dexTool", Kind: forge.KindScalar, Value: args["dexTool"]},
		{Name: "minSdkVersion", Kind: forge.KindScalar, Value: args["minSdkVersion"]},
		{Name: "secondaryDexCompression", Kind: forge.KindScalar, Value: args["secondaryDexCompression"]},
	}

	return forge.Rule{
		Type:   "android_binary",
		Target: target,
		Deps:   srcs,
		Inputs: inputs,
		Factory: func(ctx *forge.BuildContext) ([]forge.Step, []forge.OutputArtifact, error) {
			return buildDexMergeSteps(ctx, target, srcs, dexTool, compression)
		},
	}, nil
}

func buildDexMergeSteps(ctx *forge.BuildContext, target forge.Target, srcs []forge.Target, dexTool, compression string) ([]forge.Step, []forge.OutputArtifact, error) {
	outRoot := filepath.Join(ctx.OutRoot, target.Path, target.Name)
	secondaryDir := filepath.Join(outRoot, "secondary-dex")
	successDir := forge.NewSuccessDir(filepath.Join(outRoot, ".success"))

	archivePaths := make([]string, len(srcs))
	archiveRules := make(map[string]*forge.Rule, len(srcs))
	var outputs []forge.OutputArtifact
	for i, dep := range srcs {
		rule, err := ctx.Resolver.RequireRule(dep)
		if err != nil {
			return nil, nil, err
		}
		archivePath := filepath.Join(outRoot, "inputs", fmt.Sprintf("%d-%s.jar", i, rule.Target.Name))
		archivePaths[i] = archivePath
		archiveRules[archivePath] = rule

		out := outputSuffix(i, compression)
		outputs = append(outputs, forge.NewOutputArtifact(target, out, filepath.Join(secondaryDir, out)))
	}

	multimap := func() (map[string][]string, error) {
		m := make(map[string][]string, len(outputs))
		for i, out := range outputs {
			m[out.Path] = []string{archivePaths[i]}
		}
		return m, nil
	}

	hasher := forge.NewRuleKeyHasher()
	inputHashes := func(input string) (string, bool) {
		// Dependency archives are content-addressed by their owning rule's
		// key rather than re-hashed from disk, since that key already
		// captures every input that could change the archive's bytes.
		rule, ok := archiveRules[input]
		if !ok {
			return "", false
		}
		hash, err := hasher.Hash(*rule, nil)
		if err != nil {
			return "", false
		}
		return hash, true
	}

	planner := forge.NewPlanner(forge.PlannerConfig{
		Multimap:        multimap,
		InputHashes:     inputHashes,
		SuccessDir:      successDir,
		SecondaryOutDir: secondaryDir,
		Options: forge.DexOptions{
			DexerPath: dexTool,
		},
	})

	step := &forge.PlannerStep{Planner: planner, Name: target.Canonical()}
	return []forge.Step{&forge.MkdirStep{Path: secondaryDir}, step}, outputs, nil
}

func outputSuffix(i int, compression string) string {
	switch compression {
	case "xz":
		return fmt.Sprintf("secondary-%d.dex.jar.xz", i+1)
	case "xzs":
		return fmt.Sprintf("secondary-%d.dex.jar.xzs", i+1)
	default:
		return fmt.Sprintf("secondary-%d.dex", i+1)
	}
}
