// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle defines the bundle document model and its
// composition rules.
//
// A bundle is one declarative configuration document: YAML metadata
// (identity, includes, structured sections) optionally followed by a
// markdown instruction body. Bundles compose left-to-right with
// later-overrides-earlier semantics into a single document, which
// compiles to the mount plan the session runtime consumes.
//
// Composition is pure: Compose never mutates its receiver or
// arguments. Each section has its own merge rule — see Compose.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/loadout/lib/merge"
)

// Bundle is one loaded configuration document.
type Bundle struct {
	// Name is the display name and the namespace key under which
	// this bundle's files are addressable by @name:path mentions.
	Name string `yaml:"name" json:"name"`

	// Version identifies the document revision. Required unless the
	// document is agent-flavored (Name plus Description).
	Version string `yaml:"version,omitempty" json:"version,omitempty"`

	// Description is the agent-flavored identity field.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Includes names other bundles to compose beneath this one, in
	// order. Consumed during loading; never carried into composed
	// results.
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`

	// Session is the session runtime configuration. Deep-merged.
	Session map[string]any `yaml:"session,omitempty" json:"session,omitempty"`

	// Providers, Tools, and Hooks are module lists: sequences of
	// entries keyed by their "module" field. Merged by identity.
	Providers []any `yaml:"providers,omitempty" json:"providers,omitempty"`
	Tools     []any `yaml:"tools,omitempty" json:"tools,omitempty"`
	Hooks     []any `yaml:"hooks,omitempty" json:"hooks,omitempty"`

	// Spawn configures sub-session spawning. Deep-merged.
	Spawn map[string]any `yaml:"spawn,omitempty" json:"spawn,omitempty"`

	// Agents maps agent names to their configuration. Union-merged;
	// an overlay's entry replaces the base's entirely.
	Agents map[string]any `yaml:"agents,omitempty" json:"agents,omitempty"`

	// Context maps logical context names to file paths relative to
	// BasePath. Union-merged, overlay wins.
	Context map[string]string `yaml:"context,omitempty" json:"context,omitempty"`

	// Instruction is the markdown body (the system prompt). Subject
	// to replace-on-merge, and to mention expansion at consumption
	// time — never at merge time.
	Instruction string `yaml:"-" json:"-"`

	// BasePath is the filesystem location this bundle's relative
	// references resolve against.
	BasePath string `yaml:"-" json:"-"`

	// SourceBasePaths maps namespaces (other bundles' names) to
	// their base paths, accumulated during composition so mentions
	// against any composed-in namespace still resolve afterwards.
	SourceBasePaths map[string]string `yaml:"-" json:"-"`
}

// Validate checks the identity invariant: Name is required, and so is
// Version or Description (the latter for agent-flavored documents).
// Enforced at parse time; composed results inherit validity from
// their inputs.
func (b *Bundle) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("bundle missing required field %q", "name")
	}
	if b.Version == "" && b.Description == "" {
		return fmt.Errorf("bundle %q missing required field %q (or %q for agent documents)", b.Name, "version", "description")
	}
	return nil
}

// Compose folds others onto b in argument order, each treated as the
// overlay (later wins), and returns a new Bundle. Neither b nor any
// of the others is mutated.
//
// Section rules:
//   - session, spawn: deep merge
//   - providers, tools, hooks: module-list merge by identity
//   - agents: union, overlay entry replaces wholesale
//   - context: union, overlay wins on collision
//   - instruction: overlay replaces when it provides a non-empty one
//   - name/version/description: overlay wins when non-empty
//   - base path: the overlay-most bundle's
//   - source base paths: union, plus each operand's own name→path
//   - includes: dropped (consumed during loading)
func (b *Bundle) Compose(others ...*Bundle) *Bundle {
	result := b.clone()
	result.Includes = nil
	for _, other := range others {
		result = composePair(result, other)
	}
	return result
}

// composePair merges overlay onto base. Both are left untouched; the
// result shares no mutable state with either.
func composePair(base, overlay *Bundle) *Bundle {
	result := &Bundle{
		Name:        base.Name,
		Version:     base.Version,
		Description: base.Description,
		BasePath:    base.BasePath,
	}
	if overlay.Name != "" {
		result.Name = overlay.Name
	}
	if overlay.Version != "" {
		result.Version = overlay.Version
	}
	if overlay.Description != "" {
		result.Description = overlay.Description
	}
	if overlay.BasePath != "" {
		result.BasePath = overlay.BasePath
	}

	result.Session = mergeSection(base.Session, overlay.Session)
	result.Spawn = mergeSection(base.Spawn, overlay.Spawn)
	result.Providers = mergeModules(base.Providers, overlay.Providers)
	result.Tools = mergeModules(base.Tools, overlay.Tools)
	result.Hooks = mergeModules(base.Hooks, overlay.Hooks)

	result.Agents = unionAnyMaps(base.Agents, overlay.Agents)
	result.Context = unionStringMaps(base.Context, overlay.Context)

	result.Instruction = base.Instruction
	if overlay.Instruction != "" {
		result.Instruction = overlay.Instruction
	}

	// Accumulate namespaces: every bundle that has flowed into this
	// composition stays addressable for mention resolution, even
	// though the composed result lives at the overlay's base path.
	paths := unionStringMaps(base.SourceBasePaths, overlay.SourceBasePaths)
	if paths == nil {
		paths = make(map[string]string)
	}
	if base.Name != "" && base.BasePath != "" {
		if _, exists := paths[base.Name]; !exists {
			paths[base.Name] = base.BasePath
		}
	}
	if overlay.Name != "" && overlay.BasePath != "" {
		paths[overlay.Name] = overlay.BasePath
	}
	if len(paths) > 0 {
		result.SourceBasePaths = paths
	}

	return result
}

// ResolveContextPath resolves a logical context name to an absolute
// file path: first through the Context mapping, then by treating the
// name as a path relative to BasePath, then with a .md extension
// appended. Returns false when nothing exists — context lookups are
// opportunistic, like the mentions built on them.
func (b *Bundle) ResolveContextPath(name string) (string, bool) {
	if mapped, ok := b.Context[name]; ok {
		candidate := filepath.Join(b.BasePath, filepath.FromSlash(mapped))
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
		return "", false
	}

	candidate := filepath.Join(b.BasePath, filepath.FromSlash(name))
	if _, err := os.Stat(candidate); err == nil {
		return candidate, true
	}
	if _, err := os.Stat(candidate + ".md"); err == nil {
		return candidate + ".md", true
	}
	return "", false
}

// clone returns a deep copy.
func (b *Bundle) clone() *Bundle {
	copied := *b
	copied.Includes = append([]string(nil), b.Includes...)
	copied.Session = merge.CopyMap(b.Session)
	copied.Spawn = merge.CopyMap(b.Spawn)
	copied.Providers = merge.CopyList(b.Providers)
	copied.Tools = merge.CopyList(b.Tools)
	copied.Hooks = merge.CopyList(b.Hooks)
	copied.Agents = merge.CopyMap(b.Agents)
	copied.Context = unionStringMaps(b.Context, nil)
	copied.SourceBasePaths = unionStringMaps(b.SourceBasePaths, nil)
	return &copied
}

// mergeSection deep-merges two mapping sections, returning nil when
// both are empty so empty sections stay empty rather than becoming
// empty maps.
func mergeSection(base, overlay map[string]any) map[string]any {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	return merge.Maps(base, overlay)
}

// mergeModules merges two module lists, nil when both are empty.
func mergeModules(base, overlay []any) []any {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	return merge.ModuleLists(base, overlay)
}

// unionAnyMaps unions two maps with overlay entries replacing base
// entries wholesale (no deep merge — agents are opaque units).
func unionAnyMaps(base, overlay map[string]any) map[string]any {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]any, len(base)+len(overlay))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range overlay {
		result[key] = value
	}
	return result
}

// unionStringMaps unions two string maps, overlay wins.
func unionStringMaps(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	result := make(map[string]string, len(base)+len(overlay))
	for key, value := range base {
		result[key] = value
	}
	for key, value := range overlay {
		result[key] = value
	}
	return result
}

