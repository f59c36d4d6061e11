// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

// Command forge is a thin CLI front-end over the build core: it is
// deliberately minimal, since the target-pattern language and a real CLI
// front-end are out of this core's scope. It exists only so the core is
// runnable, not as a specified component.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foundryci/forge"
	_ "github.com/foundryci/forge/descriptions"
	"github.com/foundryci/forge/internal/log"
	"github.com/foundryci/forge/internal/render"
)

var manifestPath string

func main() {
	root := &cobra.Command{
		Use:   "forge",
		Short: "Build a target-graph of rules with fan-out caching",
	}
	root.PersistentFlags().StringVar(&manifestPath, "manifest", "targets.yaml", "target manifest path")

	root.AddCommand(buildCmd(), planCmd(), whyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "forge: %s\n", err)
		os.Exit(1)
	}
}

func newResolver() (*forge.Resolver, error) {
	manifest, err := forge.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	provider := &forge.ManifestProvider{Manifest: manifest, Registry: forge.DefaultRegistry}
	return forge.NewResolver(forge.DefaultRegistry, provider), nil
}

func buildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build <target>...",
		Short: "Resolve and execute the step DAG for one or more targets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver()
			if err != nil {
				return err
			}
			targets, err := parseTargets(args)
			if err != nil {
				return err
			}

			rules, err := resolver.TransitiveClosure(targets)
			if err != nil {
				return err
			}
			resolver.Freeze()

			cfg := forge.LoadOrDefault(".")
			ctx := context.Background()
			for _, rule := range rules {
				steps, _, err := rule.Factory(&forge.BuildContext{Resolver: resolver, OutRoot: cfg.OutAbsPath(".")})
				if err != nil {
					return err
				}
				runner := forge.StepRunner{OwningTarget: rule.Target.Canonical()}
				if err := runner.Run(ctx, steps); err != nil {
					log.L().Errorw("build failed", "target", rule.Target.Canonical(), "error", err)
					return err
				}
			}
			return nil
		},
	}
}

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan <target>",
		Short: "Print the resolved step pipeline for a target without executing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver()
			if err != nil {
				return err
			}
			target, err := forge.ParseTarget(args[0])
			if err != nil {
				return err
			}
			rule, err := resolver.RequireRule(target)
			if err != nil {
				return err
			}
			resolver.Freeze()

			cfg := forge.LoadOrDefault(".")
			steps, _, err := rule.Factory(&forge.BuildContext{Resolver: resolver, OutRoot: cfg.OutAbsPath(".")})
			if err != nil {
				return err
			}
			descs := make([]string, len(steps))
			for i, s := range steps {
				descs[i] = s.Describe()
			}
			fmt.Println(render.Plan(target.Canonical(), descs))
			return nil
		},
	}
}

func whyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "why <target>",
		Short: "Print a target's outputs with its current rule key (no staleness check)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := newResolver()
			if err != nil {
				return err
			}
			target, err := forge.ParseTarget(args[0])
			if err != nil {
				return err
			}
			rule, err := resolver.RequireRule(target)
			if err != nil {
				return err
			}
			resolver.Freeze()

			cfg := forge.LoadOrDefault(".")
			steps, outputs, err := rule.Factory(&forge.BuildContext{Resolver: resolver, OutRoot: cfg.OutAbsPath(".")})
			if err != nil {
				return err
			}
			hasher := forge.NewRuleKeyHasher()
			key, err := hasher.Hash(*rule, steps)
			if err != nil {
				return err
			}
			for _, out := range outputs {
				fmt.Println(render.Why(out.Path, "rule key "+key, ""))
			}
			return nil
		},
	}
}

func parseTargets(args []string) ([]forge.Target, error) {
	targets := make([]forge.Target, len(args))
	for i, a := range args {
		t, err := forge.ParseTarget(a)
		if err != nil {
			return nil, err
		}
		targets[i] = t
	}
	return targets, nil
}
