// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"fmt"
	"sort"
	"strings"
)

// ArtifactResolver resolves artifact references to concrete on-disk paths
// at execution time — the only place an OutputArtifact's "object" value is
// ever stringified into a real path. Implementations are typically a thin
// wrapper over the planned output root.
type ArtifactResolver interface {
	ResolvePath(a *Artifact) (string, error)
}

// CmdArg is one (object, post-format-string) pair in a command-line-args
// bundle. Object is stringified late, at execution time, by an
// ArtifactResolver; FormatString is applied to that string (e.g.
// "-classpath=%s").
type CmdArg struct {
	Object       any
	FormatString string // must contain exactly one %s, or be empty for bare %s
}

// CmdArgs is an ordered command-line-args bundle: CmdArg pairs plus an
// ordered string→string environment map.
type CmdArgs struct {
	Args []CmdArg
	Env  map[string]string
}

// Render stringifies the bundle into an argv slice and an environ slice,
// resolving any artifact references via resolver. This only ever runs at
// step-execution time, never during rule-key computation.
func (c CmdArgs) Render(resolver ArtifactResolver) ([]string, []string, error) {
	argv := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		s, err := stringifyObject(a.Object, resolver)
		if err != nil {
			return nil, nil, err
		}
		format := a.FormatString
		if format == "" {
			format = "%s"
		}
		argv = append(argv, fmt.Sprintf(format, s))
	}

	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+c.Env[k])
	}
	return argv, env, nil
}

func stringifyObject(obj any, resolver ArtifactResolver) (string, error) {
	switch v := obj.(type) {
	case OutputArtifact:
		return resolver.ResolvePath(v.Artifact)
	case *Artifact:
		return resolver.ResolvePath(v)
	case SourcePath:
		if p, ok := v.Path(); ok {
			return p.CellRelative, nil
		}
		if b, ok := v.BuildTarget(); ok {
			return resolver.ResolvePath(&Artifact{name: b.Output, bound: true, source: v})
		}
		return "", fmt.Errorf("empty source path")
	case fmt.Stringer:
		return v.String(), nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

// RuleKeyRepresentation returns the canonical, cycle-safe stringification of
// obj for the rule-key hasher:
//
//   - OutputArtifact  -> its inner artifact's representation.
//   - a bound artifact whose source is a BuildTargetSource -> the target's
//     canonical form only (the cycle break: never recurse into the
//     producing rule's key or the artifact's content).
//   - anything else -> its canonical stringification.
func RuleKeyRepresentation(obj any) string {
	switch v := obj.(type) {
	case OutputArtifact:
		return RuleKeyRepresentation(v.Artifact)
	case *Artifact:
		if src, ok := v.Source(); ok {
			if bt, ok := src.BuildTarget(); ok {
				return "target-ref:" + bt.Target.Canonical()
			}
			return src.Canonical()
		}
		return "unbound-artifact:" + v.Name()
	case SourcePath:
		if bt, ok := v.BuildTarget(); ok {
			return "target-ref:" + bt.Target.Canonical()
		}
		return v.Canonical()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// RuleKeyString renders the CmdArgs bundle's rule-key contribution: for
// each pair, the format string then the object's RuleKeyRepresentation, in
// order, followed by the sorted environment map.
func (c CmdArgs) RuleKeyString() string {
	var b strings.Builder
	for _, a := range c.Args {
		b.WriteString(a.FormatString)
		b.WriteByte('\x00')
		b.WriteString(RuleKeyRepresentation(a.Object))
		b.WriteByte('\x00')
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(c.Env[k])
		b.WriteByte('\x00')
	}
	return b.String()
}
