// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RawTargetSpec is one target's declaration as read from a manifest file:
// a rule-type name plus untyped attribute values. Converting these into a
// schema-typed Arg happens in ManifestProvider.Lookup against the
// description's ArgSchema, not in this type — it has no opinion on attribute
// shapes until a rule type does.
type RawTargetSpec struct {
	Type string         `yaml:"type"`
	Args map[string]any `yaml:"args"`
}

// Manifest is a flat target->declaration map, the stand-in this core uses
// for "whatever parses build files into raw attribute dictionaries" — that
// parser is out of scope here, so the manifest format is deliberately a
// plain YAML document rather than a bespoke language.
type Manifest struct {
	Targets map[string]RawTargetSpec `yaml:"targets"`
}

// LoadManifest reads a YAML manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// ManifestProvider adapts a Manifest into a TargetProvider, typing each
// target's raw attribute values against its rule type's declared schema.
type ManifestProvider struct {
	Manifest *Manifest
	Registry *DescriptionRegistry
}

// Lookup implements TargetProvider.
func (p *ManifestProvider) Lookup(t Target) (TargetSpec, bool) {
	raw, ok := p.Manifest.Targets[t.Canonical()]
	if !ok {
		return TargetSpec{}, false
	}
	desc, err := p.Registry.LookupByName(raw.Type)
	if err != nil {
		return TargetSpec{}, false
	}

	schema := desc.ArgSchema()
	args := make(Arg, len(raw.Args))
	for name, kind := range schema {
		v, present := raw.Args[name]
		if !present {
			continue
		}
		attr, err := convertRawAttr(kind, v)
		if err != nil {
			return TargetSpec{}, false
		}
		args[name] = attr
	}
	return TargetSpec{RuleType: raw.Type, Args: args}, true
}

func convertRawAttr(kind AttrKind, v any) (AttrValue, error) {
	switch kind {
	case KindScalar:
		s, ok := v.(string)
		if !ok {
			return AttrValue{}, fmt.Errorf("expected scalar string, got %T", v)
		}
		return ScalarVal(s), nil

	case KindList, KindSet:
		items, err := toStringSlice(v)
		if err != nil {
			return AttrValue{}, err
		}
		if kind == KindSet {
			return SetVal(items...), nil
		}
		return ListVal(items...), nil

	case KindPathMap:
		raw, ok := v.(map[string]any)
		if !ok {
			return AttrValue{}, fmt.Errorf("expected path map, got %T", v)
		}
		out := make(map[string]SourcePath, len(raw))
		for k, rv := range raw {
			s, ok := rv.(string)
			if !ok {
				return AttrValue{}, fmt.Errorf("path map entry %q: expected string, got %T", k, rv)
			}
			out[k] = NewPathSource(s)
		}
		return PathMapVal(out), nil

	case KindTargetRefs:
		items, err := toStringSlice(v)
		if err != nil {
			return AttrValue{}, err
		}
		targets := make([]Target, len(items))
		for i, s := range items {
			t, err := ParseTarget(s)
			if err != nil {
				return AttrValue{}, err
			}
			targets[i] = t
		}
		return TargetRefsVal(targets...), nil

	default:
		return AttrValue{}, fmt.Errorf("unknown attribute kind %d", kind)
	}
}

func toStringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]string, len(items))
	for i, it := range items {
		s, ok := it.(string)
		if !ok {
			return nil, fmt.Errorf("expected string element, got %T", it)
		}
		out[i] = s
	}
	return out, nil
}
