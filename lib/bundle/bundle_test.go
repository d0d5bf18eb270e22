// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/loadout/lib/testutil"
)

func TestParseFrontmatterDocument(t *testing.T) {
	document := `---
name: reviewer
version: 1.2.0
session:
  model: large
tools:
  - module: search
    depth: 3
---

You review code. Be thorough.
`
	parsed, err := Parse([]byte(document), "/work/reviewer")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Name != "reviewer" || parsed.Version != "1.2.0" {
		t.Fatalf("identity = %q/%q, want reviewer/1.2.0", parsed.Name, parsed.Version)
	}
	if parsed.Session["model"] != "large" {
		t.Fatalf("session.model = %v, want large", parsed.Session["model"])
	}
	if parsed.Instruction != "You review code. Be thorough." {
		t.Fatalf("instruction = %q", parsed.Instruction)
	}
	if parsed.BasePath != "/work/reviewer" {
		t.Fatalf("base path = %q", parsed.BasePath)
	}
}

func TestParsePlainYAMLDocument(t *testing.T) {
	document := "name: tools\nversion: 0.1.0\ntools:\n  - module: search\n"
	parsed, err := Parse([]byte(document), "/work/tools")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Instruction != "" {
		t.Fatalf("plain YAML document should have no instruction, got %q", parsed.Instruction)
	}
	if len(parsed.Tools) != 1 {
		t.Fatalf("got %d tools, want 1", len(parsed.Tools))
	}
}

func TestParseAgentFlavoredIdentity(t *testing.T) {
	document := "---\nname: helper\ndescription: A general helper.\n---\nBe helpful.\n"
	parsed, err := Parse([]byte(document), "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Description != "A general helper." {
		t.Fatalf("description = %q", parsed.Description)
	}
}

func TestParseRejectsMissingIdentity(t *testing.T) {
	cases := []struct {
		name     string
		document string
	}{
		{"no name", "---\nversion: 1.0.0\n---\nbody\n"},
		{"name only", "---\nname: x\n---\nbody\n"},
	}
	for _, tc := range cases {
		if _, err := Parse([]byte(tc.document), ""); err == nil {
			t.Errorf("%s: Parse accepted an invalid document", tc.name)
		}
	}
}

func TestReadFileProbesDocumentNames(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "bundle.yaml"), "name: probe\nversion: 1.0.0\n")

	parsed, err := ReadFile(dir)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if parsed.Name != "probe" {
		t.Fatalf("name = %q, want probe", parsed.Name)
	}
	if parsed.BasePath != dir {
		t.Fatalf("base path = %q, want %q", parsed.BasePath, dir)
	}
}

func TestComposePrecedence(t *testing.T) {
	base := &Bundle{
		Name:     "base",
		Version:  "1.0.0",
		BasePath: "/work/base",
		Session:  map[string]any{"model": "small", "timeout": 30},
		Tools: []any{
			map[string]any{"module": "search", "depth": 2},
		},
		Agents:      map[string]any{"planner": map[string]any{"model": "small", "notes": "keep"}},
		Context:     map[string]string{"guide": "docs/guide.md"},
		Instruction: "Base instruction.",
	}
	overlay := &Bundle{
		Name:     "review",
		Version:  "2.0.0",
		BasePath: "/work/review",
		Session:  map[string]any{"model": "large"},
		Tools: []any{
			map[string]any{"module": "search", "depth": 9},
			map[string]any{"module": "web"},
		},
		Agents:      map[string]any{"planner": map[string]any{"model": "large"}},
		Context:     map[string]string{"checklist": "docs/checklist.md"},
		Instruction: "Review instruction.",
	}

	composed := base.Compose(overlay)

	if composed.Name != "review" || composed.Version != "2.0.0" {
		t.Fatalf("identity = %q/%q, want overlay's", composed.Name, composed.Version)
	}
	if composed.BasePath != "/work/review" {
		t.Fatalf("base path = %q, want overlay's", composed.BasePath)
	}
	if composed.Session["model"] != "large" || composed.Session["timeout"] != 30 {
		t.Fatalf("session = %v, want deep merge", composed.Session)
	}
	if len(composed.Tools) != 2 {
		t.Fatalf("got %d tools, want 2 (identity merge)", len(composed.Tools))
	}
	if composed.Tools[0].(map[string]any)["depth"] != 9 {
		t.Fatalf("tools[0].depth = %v, want 9", composed.Tools[0].(map[string]any)["depth"])
	}
	if composed.Instruction != "Review instruction." {
		t.Fatalf("instruction = %q, want overlay's", composed.Instruction)
	}

	// Agents replace wholesale: base's "notes" key must be gone.
	planner := composed.Agents["planner"].(map[string]any)
	if _, kept := planner["notes"]; kept {
		t.Fatalf("agents deep-merged, want wholesale replacement: %v", planner)
	}

	// Context unions.
	if composed.Context["guide"] == "" || composed.Context["checklist"] == "" {
		t.Fatalf("context = %v, want union of both", composed.Context)
	}

	// Both operands stay addressable as namespaces.
	if composed.SourceBasePaths["base"] != "/work/base" {
		t.Fatalf("source base paths = %v, want base recorded", composed.SourceBasePaths)
	}
	if composed.SourceBasePaths["review"] != "/work/review" {
		t.Fatalf("source base paths = %v, want review recorded", composed.SourceBasePaths)
	}
}

func TestComposeEmptyOverlayFieldsKeepBase(t *testing.T) {
	base := &Bundle{Name: "base", Version: "1.0.0", Instruction: "Keep me."}
	overlay := &Bundle{Name: "over", Version: "2.0.0"}

	composed := base.Compose(overlay)
	if composed.Instruction != "Keep me." {
		t.Fatalf("instruction = %q, want base's when overlay has none", composed.Instruction)
	}
}

func TestComposeLeftToRight(t *testing.T) {
	a := &Bundle{Name: "a", Version: "1", Session: map[string]any{"model": "a"}}
	b := &Bundle{Name: "b", Version: "1", Session: map[string]any{"model": "b"}}
	c := &Bundle{Name: "c", Version: "1", Session: map[string]any{"model": "c"}}

	composed := a.Compose(b, c)
	if composed.Session["model"] != "c" {
		t.Fatalf("model = %v, want the right-most overlay to win", composed.Session["model"])
	}
}

func TestComposeDropsIncludes(t *testing.T) {
	base := &Bundle{Name: "base", Version: "1.0.0", Includes: []string{"../other"}}
	if composed := base.Compose(); len(composed.Includes) != 0 {
		t.Fatalf("includes = %v, want consumed", composed.Includes)
	}
	if composed := base.Compose(&Bundle{Name: "o", Version: "1"}); len(composed.Includes) != 0 {
		t.Fatalf("includes = %v, want consumed", composed.Includes)
	}
}

func TestComposeDoesNotMutateOperands(t *testing.T) {
	base := &Bundle{Name: "base", Version: "1", Session: map[string]any{"model": "small"}}
	overlay := &Bundle{Name: "over", Version: "1", Session: map[string]any{"model": "large"}}

	composed := base.Compose(overlay)
	composed.Session["model"] = "mutated"

	if base.Session["model"] != "small" || overlay.Session["model"] != "large" {
		t.Fatalf("compose result aliases an operand's session")
	}
}

func TestResolveContextPath(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "docs", "guide.md"), "# Guide\n")
	testutil.WriteFile(t, filepath.Join(dir, "notes.md"), "notes\n")

	b := &Bundle{
		Name:     "ctx",
		Version:  "1",
		BasePath: dir,
		Context:  map[string]string{"guide": "docs/guide.md", "missing": "docs/gone.md"},
	}

	path, ok := b.ResolveContextPath("guide")
	if !ok || path != filepath.Join(dir, "docs", "guide.md") {
		t.Fatalf("guide resolved to %q (%v)", path, ok)
	}

	// Mapped but nonexistent: no fallback probing.
	if _, ok := b.ResolveContextPath("missing"); ok {
		t.Fatalf("missing mapped context resolved")
	}

	// Unmapped names probe relative to the base path, then with .md.
	if path, ok := b.ResolveContextPath("notes"); !ok || path != filepath.Join(dir, "notes.md") {
		t.Fatalf("notes resolved to %q (%v)", path, ok)
	}
	if _, ok := b.ResolveContextPath("absent"); ok {
		t.Fatalf("absent context resolved")
	}
}

func TestMountPlanExcludesNonRuntimeSections(t *testing.T) {
	b := &Bundle{
		Name:        "plan",
		Version:     "1",
		Includes:    []string{"../other"},
		Session:     map[string]any{"model": "large"},
		Tools:       []any{map[string]any{"module": "search"}},
		Context:     map[string]string{"guide": "docs/guide.md"},
		Instruction: "Do things.",
	}

	plan := b.MountPlan()
	if plan.Session["model"] != "large" {
		t.Fatalf("session missing from plan: %v", plan.Session)
	}
	if len(plan.Tools) != 1 {
		t.Fatalf("tools missing from plan: %v", plan.Tools)
	}

	// The plan's serialized form must never leak includes, context,
	// or the instruction.
	encoded := mustMarshalYAML(t, plan)
	for _, forbidden := range []string{"includes", "context", "instruction", "Do things."} {
		if strings.Contains(encoded, forbidden) {
			t.Fatalf("mount plan leaks %q:\n%s", forbidden, encoded)
		}
	}
}

func TestMountPlanCopiesDeeply(t *testing.T) {
	b := &Bundle{
		Name:    "plan",
		Version: "1",
		Session: map[string]any{"model": "small"},
	}
	plan := b.MountPlan()
	plan.Session["model"] = "mutated"
	if b.Session["model"] != "small" {
		t.Fatalf("mount plan aliases the bundle's session")
	}
}

func mustMarshalYAML(t *testing.T, value any) string {
	t.Helper()
	data, err := yaml.Marshal(value)
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}
	return string(data)
}
