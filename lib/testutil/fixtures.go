// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for loadout packages.
//
// [WriteFile] and [WriteBundle] build on-disk fixtures: bundle
// directories with frontmatter documents and context files. Tests
// compose real directory trees under t.TempDir() rather than mocking
// the filesystem, since the loader and mention resolver are defined in
// terms of real paths.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no loadout-internal dependencies.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories as
// needed. Returns path for chaining into fixture construction.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating fixture directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
	return path
}

// WriteBundle creates a bundle directory under dir containing a
// bundle.md document with the given YAML frontmatter and instruction
// body. Returns the bundle directory path.
//
//	dir := testutil.WriteBundle(t, t.TempDir(), "base",
//		"name: base\nversion: 1.0.0\n", "You are a helper.\n")
func WriteBundle(t *testing.T, dir, name, frontmatter, instruction string) string {
	t.Helper()
	bundleDir := filepath.Join(dir, name)
	document := "---\n" + frontmatter + "---\n" + instruction
	WriteFile(t, filepath.Join(bundleDir, "bundle.md"), document)
	return bundleDir
}
