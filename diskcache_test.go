// Copyright 2026 The forge Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"reflect"
	"testing"
)

func TestDiskCacheMissOnEmpty(t *testing.T) {
	c := NewDiskCache(t.TempDir())
	if _, ok := c.Fetch("nope"); ok {
		t.Error("Fetch on empty cache returned a hit")
	}
}

func TestDiskCacheStoreThenFetchRoundTrips(t *testing.T) {
	c := NewDiskCache(t.TempDir())
	want := ArtifactSet{
		"out.bin":    []byte("hello"),
		"nested/a.o": []byte("world"),
	}
	c.Store("key1", want)

	got, ok := c.Fetch("key1")
	if !ok {
		t.Fatal("Fetch after Store missed")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch() = %v, want %v", got, want)
	}
}

func TestDiskCacheStoreIsIdempotentLastWriterWins(t *testing.T) {
	c := NewDiskCache(t.TempDir())
	c.Store("key1", ArtifactSet{"out.bin": []byte("v1")})
	c.Store("key1", ArtifactSet{"out.bin": []byte("v2")})

	got, ok := c.Fetch("key1")
	if !ok {
		t.Fatal("Fetch missed")
	}
	if string(got["out.bin"]) != "v2" {
		t.Errorf("out.bin = %q, want v2", got["out.bin"])
	}
}

func TestDiskCacheDistinctKeysDoNotCollide(t *testing.T) {
	c := NewDiskCache(t.TempDir())
	c.Store("key1", ArtifactSet{"out.bin": []byte("a")})
	c.Store("key2", ArtifactSet{"out.bin": []byte("b")})

	got1, _ := c.Fetch("key1")
	got2, _ := c.Fetch("key2")
	if string(got1["out.bin"]) != "a" || string(got2["out.bin"]) != "b" {
		t.Errorf("cross-key contamination: %v / %v", got1, got2)
	}
}

func TestNullCacheAlwaysMisses(t *testing.T) {
	var c NullCache
	if _, ok := c.Fetch("anything"); ok {
		t.Error("NullCache.Fetch reported a hit")
	}
	c.Store("anything", ArtifactSet{"x": []byte("y")})
	if _, ok := c.Fetch("anything"); ok {
		t.Error("NullCache.Fetch reported a hit after Store")
	}
}
