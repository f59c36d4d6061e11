// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"fmt"
	"strings"
)

// ParseTarget parses a target's canonical textual form, //cell/path:name
// or //cell/path:name#flavor1,flavor2, back into a Target. The first path
// segment becomes Cell, so the canonical string round-trips but a Target
// with an empty Cell does not get its original Cell/Path split back.
func ParseTarget(s string) (Target, error) {
	if !strings.HasPrefix(s, "//") {
		return Target{}, fmt.Errorf("target %q: must start with //", s)
	}
	rest := s[2:]

	base, flavorStr, hasFlavors := strings.Cut(rest, "#")

	cellPath, name, ok := strings.Cut(base, ":")
	if !ok {
		return Target{}, fmt.Errorf("target %q: missing \":name\"", s)
	}

	var cell, path string
	if idx := strings.IndexByte(cellPath, '/'); idx >= 0 {
		cell, path = cellPath[:idx], cellPath[idx+1:]
	} else {
		cell = cellPath
	}

	var flavors []string
	if hasFlavors && flavorStr != "" {
		flavors = strings.Split(flavorStr, ",")
	}
	return NewTarget(cell, path, name, flavors...), nil
}
