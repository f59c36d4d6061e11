// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

// ActionCache is the opaque, off-critical-path key-value store keyed by
// rule key. The core uses only Fetch and Store; misses and fetch errors are
// treated identically — fall through to local execution.
type ActionCache interface {
	// Fetch returns the artifact set stored for ruleKey, and true if found.
	// A false return (for any reason, including a transport error) means
	// "cache miss" to the caller — never surfaced as a build failure.
	Fetch(ruleKey string) (ArtifactSet, bool)
	// Store records artifacts under ruleKey. Idempotent; last writer wins
	// per key.
	Store(ruleKey string, artifacts ArtifactSet)
}

// NullCache always misses — useful for tests and for "no remote cache
// configured" builds.
type NullCache struct{}

func (NullCache) Fetch(string) (ArtifactSet, bool) { return nil, false }
func (NullCache) Store(string, ArtifactSet)        {}
