// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mention

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/loadout/lib/bundle"
)

// Resolver maps a mention token to a file path. Implementations
// return false when the mention does not resolve — that is a normal
// outcome, not an error, and the mention is skipped.
type Resolver interface {
	Resolve(token Token) (string, bool)
}

// BaseResolver resolves mentions against a set of loaded bundles.
//
//   - @bundle-name:path resolves through that bundle's context
//     mapping and base path, falling back to the source base paths
//     accumulated during composition.
//   - @~/path and @~user/path resolve against home directories.
//   - @path resolves against RelativeTo (the working directory when
//     unset), probing a .md extension as a fallback.
//
// Applications embed BaseResolver to add their own shortcuts.
type BaseResolver struct {
	// RelativeTo anchors bare relative mentions. Empty means the
	// process working directory.
	RelativeTo string

	bundles         map[string]*bundle.Bundle
	sourceBasePaths map[string]string
}

// NewBaseResolver returns a resolver with no registered bundles.
func NewBaseResolver() *BaseResolver {
	return &BaseResolver{
		bundles:         make(map[string]*bundle.Bundle),
		sourceBasePaths: make(map[string]string),
	}
}

// RegisterBundle makes a bundle's files addressable under its
// namespace, along with every namespace in its accumulated source
// base paths (so mentions against composed-in ancestors resolve too).
func (r *BaseResolver) RegisterBundle(name string, b *bundle.Bundle) {
	r.bundles[name] = b
	for namespace, basePath := range b.SourceBasePaths {
		if _, taken := r.bundles[namespace]; !taken {
			r.sourceBasePaths[namespace] = basePath
		}
	}
}

// Resolve resolves a token to an absolute file path.
func (r *BaseResolver) Resolve(token Token) (string, bool) {
	if token.Namespace != "" {
		if registered, ok := r.bundles[token.Namespace]; ok {
			return registered.ResolveContextPath(token.Path)
		}
		if basePath, ok := r.sourceBasePaths[token.Namespace]; ok {
			return probeFile(filepath.Join(basePath, filepath.FromSlash(token.Path)))
		}
		return "", false
	}

	if strings.HasPrefix(token.Path, "~") {
		return probeFile(expandHome(token.Path))
	}

	anchor := r.RelativeTo
	if anchor == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		anchor = wd
	}
	return probeFile(filepath.Join(anchor, filepath.FromSlash(token.Path)))
}

// probeFile checks candidate, then candidate with a .md extension.
func probeFile(candidate string) (string, bool) {
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, true
	}
	withExtension := candidate + ".md"
	if info, err := os.Stat(withExtension); err == nil && !info.IsDir() {
		return withExtension, true
	}
	return "", false
}

// expandHome expands ~ and ~user prefixes. ~user paths resolve under
// the parent of the current user's home directory, which matches the
// common /home layout without consulting the passwd database.
func expandHome(p string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	// ~user/... form.
	return filepath.Join(filepath.Dir(home), p[1:])
}
