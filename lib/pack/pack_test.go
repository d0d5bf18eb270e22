// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/loadout/lib/testutil"
)

func writeBundleTree(t *testing.T, dir string) {
	t.Helper()
	testutil.WriteFile(t, filepath.Join(dir, "bundle.md"), "---\nname: packed\nversion: 1.0.0\n---\nBody.\n")
	testutil.WriteFile(t, filepath.Join(dir, "docs", "guide.md"), "# Guide\n")
}

func assertTreeExtracted(t *testing.T, dir string) {
	t.Helper()
	document, err := os.ReadFile(filepath.Join(dir, "bundle.md"))
	if err != nil {
		t.Fatalf("bundle.md missing after unpack: %v", err)
	}
	if string(document) != "---\nname: packed\nversion: 1.0.0\n---\nBody.\n" {
		t.Fatalf("bundle.md content = %q", document)
	}
	if _, err := os.Stat(filepath.Join(dir, "docs", "guide.md")); err != nil {
		t.Fatalf("nested file missing after unpack: %v", err)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, compression := range []Compression{None, LZ4, Zstd} {
		t.Run(string(compression), func(t *testing.T) {
			root := t.TempDir()
			source := filepath.Join(root, "bundle")
			writeBundleTree(t, source)

			archive := filepath.Join(root, "bundle"+compression.Extension())
			if err := Pack(source, archive, compression); err != nil {
				t.Fatalf("Pack: %v", err)
			}

			dest := filepath.Join(root, "out")
			if err := Unpack(archive, dest); err != nil {
				t.Fatalf("Unpack: %v", err)
			}
			assertTreeExtracted(t, dest)
		})
	}
}

func TestUnpackSniffsCompressionWithoutExtension(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "bundle")
	writeBundleTree(t, source)

	// Deliberately misleading extension: the sniffer must win.
	archive := filepath.Join(root, "archive.tar")
	if err := Pack(source, archive, Zstd); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	dest := filepath.Join(root, "out")
	if err := Unpack(archive, dest); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	assertTreeExtracted(t, dest)
}

func TestUnpackSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "bundle")
	writeBundleTree(t, source)
	if err := os.Symlink("/etc/passwd", filepath.Join(source, "escape")); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	archive := filepath.Join(root, "bundle.tar.zst")
	if err := Pack(source, archive, Zstd); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	dest := filepath.Join(root, "out")
	if err := Unpack(archive, dest); err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(dest, "escape")); !os.IsNotExist(err) {
		t.Fatalf("symlink survived packing")
	}
}

func TestParseCompression(t *testing.T) {
	for name, want := range map[string]Compression{"none": None, "lz4": LZ4, "zstd": Zstd} {
		got, err := ParseCompression(name)
		if err != nil || got != want {
			t.Fatalf("ParseCompression(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Fatalf("ParseCompression accepted an unknown name")
	}
}

func TestExtensions(t *testing.T) {
	if None.Extension() != ".tar" || LZ4.Extension() != ".tar.lz4" || Zstd.Extension() != ".tar.zst" {
		t.Fatalf("extensions = %q %q %q", None.Extension(), LZ4.Extension(), Zstd.Extension())
	}
}
