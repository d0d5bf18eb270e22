// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/loadout/lib/registry"
	"github.com/bureau-foundation/loadout/lib/testutil"
)

func quietLoader(t *testing.T, opts Options) *Loader {
	t.Helper()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	loaded, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return loaded
}

func TestLoadLeafBundle(t *testing.T) {
	root := t.TempDir()
	dir := testutil.WriteBundle(t, root, "solo",
		"name: solo\nversion: 1.0.0\nsession:\n  model: large\n", "Do the thing.\n")

	composed, err := quietLoader(t, Options{}).Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composed.Name != "solo" || composed.Instruction != "Do the thing." {
		t.Fatalf("composed = %+v", composed)
	}
	if composed.SourceBasePaths["solo"] != dir {
		t.Fatalf("source base paths = %v, want own namespace recorded", composed.SourceBasePaths)
	}
}

func TestLoadComposesIncludesInOrder(t *testing.T) {
	root := t.TempDir()
	testutil.WriteBundle(t, root, "base",
		"name: base\nversion: 1.0.0\nsession:\n  model: small\n  timeout: 30\ntools:\n  - module: search\n    depth: 2\n",
		"Base voice.\n")
	testutil.WriteBundle(t, root, "extras",
		"name: extras\nversion: 1.0.0\nsession:\n  model: medium\ntools:\n  - module: web\n",
		"")
	top := testutil.WriteBundle(t, root, "review",
		"name: review\nversion: 2.0.0\nincludes:\n  - ../base\n  - ../extras\nsession:\n  model: large\ntools:\n  - module: search\n    depth: 9\n",
		"Review voice.\n")

	composed, err := quietLoader(t, Options{}).Load(context.Background(), top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if composed.Name != "review" {
		t.Fatalf("name = %q, want the owning document on top", composed.Name)
	}
	if composed.Session["model"] != "large" {
		t.Fatalf("session.model = %v, want the top overlay", composed.Session["model"])
	}
	if composed.Session["timeout"] != 30 {
		t.Fatalf("session.timeout = %v, want base value surviving", composed.Session["timeout"])
	}
	if len(composed.Tools) != 2 {
		t.Fatalf("tools = %+v, want identity-merged search plus web", composed.Tools)
	}
	if composed.Tools[0].(map[string]any)["depth"] != 9 {
		t.Fatalf("tools[0] = %v, want depth 9", composed.Tools[0])
	}
	if composed.Instruction != "Review voice." {
		t.Fatalf("instruction = %q", composed.Instruction)
	}
	if len(composed.Includes) != 0 {
		t.Fatalf("includes = %v, want consumed", composed.Includes)
	}

	// Every bundle that flowed in stays addressable as a namespace.
	for _, namespace := range []string{"base", "extras", "review"} {
		if composed.SourceBasePaths[namespace] == "" {
			t.Fatalf("namespace %q missing from source base paths: %v", namespace, composed.SourceBasePaths)
		}
	}
}

func TestLoadNestedIncludes(t *testing.T) {
	root := t.TempDir()
	testutil.WriteBundle(t, root, "core",
		"name: core\nversion: 1.0.0\nsession:\n  model: tiny\n", "")
	testutil.WriteBundle(t, root, "middle",
		"name: middle\nversion: 1.0.0\nincludes:\n  - ../core\nsession:\n  depth: 4\n", "")
	top := testutil.WriteBundle(t, root, "top",
		"name: top\nversion: 1.0.0\nincludes:\n  - ../middle\n", "")

	composed, err := quietLoader(t, Options{}).Load(context.Background(), top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composed.Session["model"] != "tiny" || composed.Session["depth"] != 4 {
		t.Fatalf("session = %v, want values from both levels", composed.Session)
	}
}

func TestLoadGenuineCycleFails(t *testing.T) {
	root := t.TempDir()
	dirA := testutil.WriteBundle(t, root, "a",
		"name: a\nversion: 1.0.0\nincludes:\n  - ../b\n", "")
	testutil.WriteBundle(t, root, "b",
		"name: b\nversion: 1.0.0\nincludes:\n  - ../a\n", "")

	_, err := quietLoader(t, Options{}).Load(context.Background(), dirA)
	if err == nil {
		t.Fatalf("cycle loaded without error")
	}

	var circular *CircularIncludeError
	if !errors.As(err, &circular) {
		t.Fatalf("err = %v, want *CircularIncludeError", err)
	}
	// The error names every participant.
	message := err.Error()
	if !strings.Contains(message, filepath.Join(root, "a")) || !strings.Contains(message, filepath.Join(root, "b")) {
		t.Fatalf("error does not name both bundles: %v", message)
	}
	// Include-chain context is wrapped around it at each level.
	if !strings.Contains(message, "circular bundle include") {
		t.Fatalf("error = %v", message)
	}
}

func TestLoadSelfIncludeFails(t *testing.T) {
	root := t.TempDir()
	dir := testutil.WriteBundle(t, root, "selfish",
		"name: selfish\nversion: 1.0.0\nincludes:\n  - ../selfish\n", "")

	_, err := quietLoader(t, Options{}).Load(context.Background(), dir)
	var circular *CircularIncludeError
	if !errors.As(err, &circular) {
		t.Fatalf("err = %v, want *CircularIncludeError", err)
	}
}

func TestLoadSubdirectoryReentryAllowed(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")

	// The repository root includes one of its own subdirectories,
	// and that subdirectory includes a sibling through another
	// subdirectory fragment on the shared root. Base-URI matching
	// alone would call all of this circular.
	testutil.WriteFile(t, filepath.Join(repo, "bundle.md"),
		"---\nname: repo\nversion: 1.0.0\nincludes:\n  - .#subdirectory=agents/review\n---\n")
	testutil.WriteFile(t, filepath.Join(repo, "agents", "review", "bundle.md"),
		"---\nname: review\nversion: 1.0.0\nincludes:\n  - ../..#subdirectory=agents/style\n---\n")
	testutil.WriteFile(t, filepath.Join(repo, "agents", "style", "bundle.md"),
		"---\nname: style\nversion: 1.0.0\nsession:\n  tone: strict\n---\n")

	composed, err := quietLoader(t, Options{}).Load(context.Background(), repo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composed.Session["tone"] != "strict" {
		t.Fatalf("session = %v, want the nested subdirectory's config", composed.Session)
	}
}

func TestLoadNamespacePreloadReentryAllowed(t *testing.T) {
	root := t.TempDir()
	repo := filepath.Join(root, "repo")

	// A bundle loaded from inside a larger source preloads its root
	// as a namespace. Including that root through a registered name
	// is the legitimate self-reference pattern; the root's own
	// include of a different subdirectory then terminates.
	testutil.WriteFile(t, filepath.Join(repo, "bundle.md"),
		"---\nname: repo\nversion: 1.0.0\nsession:\n  shared: true\n---\n")
	testutil.WriteFile(t, filepath.Join(repo, "agents", "review", "bundle.md"),
		"---\nname: review\nversion: 1.0.0\nincludes:\n  - shared-repo\n---\n")

	registryPath := filepath.Join(root, "registry.json")
	store, err := registry.Open(registryPath)
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	if err := store.Add("shared-repo", registry.Entry{URI: repo}); err != nil {
		t.Fatalf("registry.Add: %v", err)
	}

	loaded := quietLoader(t, Options{Registry: store})
	composed, err := loaded.Load(context.Background(), repo+"#subdirectory=agents/review")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composed.Session["shared"] != true {
		t.Fatalf("session = %v, want the root's config composed in", composed.Session)
	}
	if composed.Name != "review" {
		t.Fatalf("name = %q, want the subdirectory bundle on top", composed.Name)
	}
}

func TestLoadMissingIncludeWrapsChainContext(t *testing.T) {
	root := t.TempDir()
	top := testutil.WriteBundle(t, root, "top",
		"name: top\nversion: 1.0.0\nincludes:\n  - ../absent\n", "")

	_, err := quietLoader(t, Options{}).Load(context.Background(), top)
	if err == nil {
		t.Fatalf("missing include loaded")
	}
	if !strings.Contains(err.Error(), `including "../absent" from bundle "top"`) {
		t.Fatalf("error lacks include-chain context: %v", err)
	}
}

func TestLoadRegistryNameExpansion(t *testing.T) {
	root := t.TempDir()
	dir := testutil.WriteBundle(t, root, "base",
		"name: base\nversion: 1.0.0\nsession:\n  model: small\n", "")

	store, err := registry.Open(filepath.Join(root, "registry.json"))
	if err != nil {
		t.Fatalf("registry.Open: %v", err)
	}
	if err := store.Add("company-base", registry.Entry{URI: dir}); err != nil {
		t.Fatalf("registry.Add: %v", err)
	}

	top := testutil.WriteBundle(t, root, "top",
		"name: top\nversion: 1.0.0\nincludes:\n  - company-base\n", "")

	composed, err := quietLoader(t, Options{Registry: store}).Load(context.Background(), top)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if composed.Session["model"] != "small" {
		t.Fatalf("session = %v, want the registered bundle composed in", composed.Session)
	}
}
