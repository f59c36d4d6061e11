// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
)

// RuleKeyHasher computes stable, content-addressed fingerprints for rules.
// A single SHA-1-class digest is adequate: the goal is to detect benign
// change, not to resist an adversary.
type RuleKeyHasher struct {
	// ContentHash, given a cell-relative path, returns a content digest.
	// Overridable for tests; defaults to hashing the file's bytes.
	ContentHash func(cellRelativePath string) (string, error)
}

// NewRuleKeyHasher returns a hasher that hashes real files on disk.
func NewRuleKeyHasher() *RuleKeyHasher {
	return &RuleKeyHasher{ContentHash: hashFileSHA1}
}

// Hash computes rule r's key: type name, target canonical form, each
// rule-key input in declared order, each step's rule-key contribution, the
// CmdArgs bundle (cycle-broken so a rule never recurses into its own
// output), and the sorted environment map. Computing a rule's key twice
// with the same RuleKeyHasher and unchanged inputs yields an identical
// digest.
func (h *RuleKeyHasher) Hash(r Rule, steps []Step) (string, error) {
	digest := sha1.New()

	write := func(s string) {
		io.WriteString(digest, s)
		digest.Write([]byte{0})
	}

	write("type:" + r.Type)
	write("target:" + r.Target.Canonical())

	for _, in := range r.Inputs {
		write("name:" + in.Name)
		s, err := h.hashAttrValue(in.Value)
		if err != nil {
			return "", fmt.Errorf("hashing attribute %q: %w", in.Name, err)
		}
		write(s)
	}

	for _, s := range steps {
		write("step:" + s.ShortName())
		params := s.RuleKeyParams()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			write(k + "=" + params[k])
		}
	}

	if r.CmdArgs != nil {
		write("cmdargs:" + r.CmdArgs.RuleKeyString())
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

func (h *RuleKeyHasher) hashAttrValue(v AttrValue) (string, error) {
	switch v.Kind {
	case KindScalar:
		return "scalar:" + v.Scalar, nil

	case KindList:
		return h.hashSequence("list", v.List), nil

	case KindSet:
		sorted := append([]string(nil), v.Set...)
		sort.Strings(sorted)
		return h.hashSequence("set", sorted), nil

	case KindPathMap:
		keys := make([]string, 0, len(v.PathMap))
		for k := range v.PathMap {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := fmt.Sprintf("pathmap:%d", len(keys))
		for _, k := range keys {
			s, err := h.hashSourcePath(v.PathMap[k])
			if err != nil {
				return "", err
			}
			out += ";" + k + "=" + s
		}
		return out, nil

	case KindTargetRefs:
		canon := make([]string, len(v.Targets))
		for i, t := range v.Targets {
			canon[i] = t.Canonical()
		}
		sort.Strings(canon)
		return h.hashSequence("targetrefs", canon), nil

	default:
		return "", fmt.Errorf("unknown attribute kind %d", v.Kind)
	}
}

func (h *RuleKeyHasher) hashSequence(tag string, elems []string) string {
	out := fmt.Sprintf("%s:%d", tag, len(elems))
	for _, e := range elems {
		out += ";" + e
	}
	return out
}

// hashSourcePath implements the path-source / build-target-source split: a
// path source is hashed as tag + cell-relative path + content hash of the
// referenced file; a build-target source is hashed as tag + the target's
// canonical form + the output name — never recursing into the producing rule.
func (h *RuleKeyHasher) hashSourcePath(sp SourcePath) (string, error) {
	if p, ok := sp.Path(); ok {
		content, err := h.ContentHash(p.CellRelative)
		if err != nil {
			return "", err
		}
		return "path:" + p.CellRelative + ":" + content, nil
	}
	if b, ok := sp.BuildTarget(); ok {
		return "target:" + b.Target.Canonical() + "#" + b.Output, nil
	}
	return "", fmt.Errorf("source path has neither path nor target-source set")
}

func hashFileSHA1(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
