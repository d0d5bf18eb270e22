// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// FileHandler resolves file URIs and bare local paths.
type FileHandler struct {
	// BasePath anchors ./relative and ../relative identifiers. Empty
	// means the process working directory.
	BasePath string

	// CacheDir is the fetch cache root, used for source-root
	// detection: a path inside the cache reports the cached
	// repository (the first directory level under the cache) as its
	// source root, so sub-bundles loaded from within a cached
	// repository attribute their files to the repository namespace
	// rather than to the sub-bundle directory.
	CacheDir string
}

// CanHandle reports true for local sources.
func (h *FileHandler) CanHandle(uri ParsedURI) bool {
	return uri.IsLocal()
}

// Resolve resolves a local source to its active path and source root.
// Returns *NotFoundError when the path (after applying any
// subdirectory fragment) does not exist.
func (h *FileHandler) Resolve(_ context.Context, uri ParsedURI) (ResolvedSource, error) {
	p := uri.Path
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		base := h.BasePath
		if base == "" {
			wd, err := os.Getwd()
			if err != nil {
				return ResolvedSource{}, err
			}
			base = wd
		}
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)

	activePath := p
	if uri.Subpath != "" {
		activePath = filepath.Join(p, filepath.FromSlash(uri.Subpath))
	}

	info, err := os.Stat(activePath)
	if err != nil {
		return ResolvedSource{}, &NotFoundError{Source: activePath}
	}

	root := p
	if uri.Subpath == "" && !info.IsDir() {
		root = filepath.Dir(p)
	}
	if cacheRoot := h.cacheRepositoryRoot(p); cacheRoot != "" {
		root = cacheRoot
	}
	return ResolvedSource{ActivePath: activePath, SourceRoot: root}, nil
}

// cacheRepositoryRoot returns the cached repository directory (the
// first directory level under the cache) when resolved lies inside
// the cache, or "" otherwise.
func (h *FileHandler) cacheRepositoryRoot(resolved string) string {
	if h.CacheDir == "" {
		return ""
	}
	cache := filepath.Clean(h.CacheDir)
	relative, err := filepath.Rel(cache, resolved)
	if err != nil || relative == "." || strings.HasPrefix(relative, "..") {
		return ""
	}
	first, _, _ := strings.Cut(filepath.ToSlash(relative), "/")
	if first == "" {
		return ""
	}
	return filepath.Join(cache, first)
}
