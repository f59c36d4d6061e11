// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package descriptions

import (
	"github.com/foundryci/forge"
)

func init() {
	forge.DefaultRegistry.MustRegister(genrule{})
}

// genrule is the minimal "run one opaque program" description: a shell
// command template plus a single declared output name. Useful in isolation
// for exercising the step runner and rule-key hasher without any of the
// other descriptions' synthesized-rule machinery.
type genrule struct{}

func (genrule) RuleType() string { return "genrule" }

func (genrule) ArgSchema() map[string]forge.AttrKind {
	return map[string]forge.AttrKind{
		"srcs": forge.KindPathMap,
		"out":  forge.KindScalar,
		"cmd":  forge.KindScalar,
	}
}

func (genrule) CreateRule(target forge.Target, args forge.Arg, resolver *forge.Resolver) (forge.Rule, error) {
	srcs := args.PathMap("srcs")
	out := args.Scalar("out")
	cmd := args.Scalar("cmd")
	if out == "" {
		return forge.Rule{}, &forge.ConfigurationError{Msg: "genrule " + target.Canonical() + ": \"out\" is required"}
	}

	inputs := []forge.RuleKeyInput{
		{Name: "srcs", Kind: forge.KindPathMap, Value: args["srcs"]},
		{Name: "out", Kind: forge.KindScalar, Value: args["out"]},
		{Name: "cmd", Kind: forge.KindScalar, Value: args["cmd"]},
	}

	return forge.Rule{
		Type:   "genrule",
		Target: target,
		Deps:   sourcePathTargets(srcs),
		Inputs: inputs,
		Factory: func(ctx *forge.BuildContext) ([]forge.Step, []forge.OutputArtifact, error) {
			outArtifact := forge.NewOutputArtifact(target, "out", out)
			step := &forge.RunProgramStep{
				Name: "genrule",
				Argv: []string{"/bin/sh", "-c", cmd},
				Env:  []string{"OUT=" + outArtifact.Path},
			}
			return []forge.Step{step}, []forge.OutputArtifact{outArtifact}, nil
		},
	}, nil
}
