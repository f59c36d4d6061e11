// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package descriptions

import (
	"github.com/foundryci/forge"
)

func init() {
	forge.DefaultRegistry.MustRegister(cxxLibrary{})
}

// cxxLibrary implements cxx_library: compiles a set of C++ sources against
// a set of headers and library dependencies into a static archive. It
// exercises the rule-key hasher's distinct treatment of ordered lists
// (compilerFlags) versus unordered sets (deps) — two rules differing only
// in flag order must hash differently, while two differing only in the
// textual order deps were declared must hash identically.
type cxxLibrary struct{}

func (cxxLibrary) RuleType() string { return "cxx_library" }

func (cxxLibrary) ArgSchema() map[string]forge.AttrKind {
	return map[string]forge.AttrKind{
		"srcs":              forge.KindPathMap,
		"headers":           forge.KindPathMap,
		"deps":              forge.KindTargetRefs,
		"compilerFlags":     forge.KindList,
		"preprocessorFlags": forge.KindList,
	}
}

func (cxxLibrary) CreateRule(target forge.Target, args forge.Arg, resolver *forge.Resolver) (forge.Rule, error) {
	srcs := args.PathMap("srcs")
	compilerFlags := args.List("compilerFlags")
	preprocessorFlags := args.List("preprocessorFlags")
	deps := args.TargetRefs("deps")

	inputs := []forge.RuleKeyInput{
		{Name: "srcs", Kind: forge.KindPathMap, Value: args["srcs"]},
		{Name: "headers", Kind: forge.KindPathMap, Value: args["headers"]},
		{Name: "deps", Kind: forge.KindTargetRefs, Value: args["deps"]},
		{Name: "compilerFlags", Kind: forge.KindList, Value: args["compilerFlags"]},
		{Name: "preprocessorFlags", Kind: forge.KindList, Value: args["preprocessorFlags"]},
	}

	cmdArgs := &forge.CmdArgs{}
	for _, f := range preprocessorFlags {
		cmdArgs.Args = append(cmdArgs.Args, forge.CmdArg{Object: f, FormatString: "-D%s"})
	}
	for _, f := range compilerFlags {
		cmdArgs.Args = append(cmdArgs.Args, forge.CmdArg{Object: f})
	}

	return forge.Rule{
		Type:    "cxx_library",
		Target:  target,
		Deps:    append(sourcePathTargets(srcs), deps...),
		Inputs:  inputs,
		CmdArgs: cmdArgs,
		Factory: func(ctx *forge.BuildContext) ([]forge.Step, []forge.OutputArtifact, error) {
			out := forge.NewOutputArtifact(target, "archive", "lib"+target.Name+".a")
			argv := append([]string{"cxx-archiver", "--out", out.Path}, compilerFlags...)
			for _, f := range preprocessorFlags {
				argv = append(argv, "-D"+f)
			}
			for path := range srcs {
				argv = append(argv, path)
			}
			return []forge.Step{&forge.RunProgramStep{Name: "cxx-archive", Argv: argv}}, []forge.OutputArtifact{out}, nil
		},
	}, nil
}
