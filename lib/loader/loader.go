// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package loader loads bundles from their sources and resolves their
// include chains into composed bundles.
//
// Loading is recursive: a bundle's includes are loaded (each possibly
// with includes of its own), composed together in list order, and the
// owning document is composed last, overlay-most. Circular includes
// are detected on canonical base URIs with the two legitimate
// re-entry patterns allowed (see loadState); a genuine cycle fails
// fast with the full chain of URIs.
//
// A Loader carries no mutable per-load state: every Load call creates
// a fresh cycle-detection state, so independent loads can run
// concurrently.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/loadout/lib/bundle"
	"github.com/bureau-foundation/loadout/lib/registry"
	"github.com/bureau-foundation/loadout/lib/source"
)

// Options configures a Loader.
type Options struct {
	// CacheDir is where git sources are cloned and the fetch index
	// lives. Required when any include may name a remote source.
	CacheDir string

	// BasePath anchors relative local sources. Empty means the
	// process working directory.
	BasePath string

	// Registry resolves bare names in include lists. Optional.
	Registry *registry.Store

	// Logger receives structured load progress. Nil means a text
	// handler on stderr.
	Logger *slog.Logger
}

// Loader loads and composes bundles.
type Loader struct {
	registry *registry.Store
	handlers []source.Handler
	index    *source.CacheIndex
	logger   *slog.Logger
}

// New constructs a Loader. The cache index is opened eagerly so a
// corrupt index surfaces here rather than mid-load.
func New(opts Options) (*Loader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	var index *source.CacheIndex
	if opts.CacheDir != "" {
		opened, err := source.OpenCacheIndex(opts.CacheDir)
		if err != nil {
			return nil, err
		}
		index = opened
	}

	return &Loader{
		registry: opts.Registry,
		handlers: []source.Handler{
			&source.FileHandler{BasePath: opts.BasePath, CacheDir: opts.CacheDir},
			&source.GitHandler{CacheDir: opts.CacheDir, Index: index},
		},
		index:  index,
		logger: logger,
	}, nil
}

// Load loads the bundle named by identifier, recursively resolves its
// includes, and returns the composed result. The identifier may be a
// registered name, a local path, or a git URI.
func (l *Loader) Load(ctx context.Context, identifier string) (*bundle.Bundle, error) {
	loaded, err := l.load(ctx, identifier, "", newLoadState())
	if err != nil {
		return nil, err
	}

	if l.index != nil {
		if err := l.index.Save(); err != nil {
			l.logger.Warn("saving fetch-cache index", "error", err)
		}
	}
	return loaded, nil
}

// load resolves one identifier. baseDir anchors relative local
// sources: the including document's directory for include edges,
// empty (meaning the loader's configured base path) at the top level.
func (l *Loader) load(ctx context.Context, identifier, baseDir string, state *loadState) (*bundle.Bundle, error) {
	expanded, viaRegistry := l.expandName(identifier)

	uri, err := source.Parse(expanded)
	if err != nil {
		return nil, err
	}

	// Anchor relative local includes at the including document's
	// directory before cycle detection: base-URI identity must not
	// depend on the process working directory.
	if uri.IsLocal() && baseDir != "" && !filepath.IsAbs(uri.Path) && !strings.HasPrefix(uri.Path, "~") {
		uri.Path = filepath.Join(baseDir, uri.Path)
	}

	entered, err := state.enter(uri, viaRegistry)
	if err != nil {
		return nil, err
	}
	defer state.leave(entered)

	resolved, err := l.resolve(ctx, uri)
	if err != nil {
		return nil, err
	}

	document, err := bundle.ReadFile(resolved.ActivePath)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("loaded bundle document",
		"bundle", document.Name, "source", uri.String(), "path", resolved.ActivePath)

	// When the document was loaded from inside a larger source (a
	// subdirectory fragment, or a file within a cached repository),
	// its root becomes addressable as a namespace. Mark the root as
	// preload-loading for the rest of this subtree: the bundle may
	// legitimately include its own root through a registered name.
	if resolved.SourceRoot != resolved.ActivePath {
		state.preload(entered, source.LocalBase(resolved.SourceRoot))
		if !uri.IsLocal() {
			state.preload(entered, uri.Base())
		}
	}

	if len(document.Includes) == 0 {
		result := document.Compose()
		if result.Name != "" && result.BasePath != "" {
			if result.SourceBasePaths == nil {
				result.SourceBasePaths = make(map[string]string)
			}
			result.SourceBasePaths[result.Name] = result.BasePath
		}
		return result, nil
	}

	included := make([]*bundle.Bundle, 0, len(document.Includes))
	for _, includeSource := range document.Includes {
		loaded, err := l.load(ctx, includeSource, document.BasePath, state)
		if err != nil {
			return nil, fmt.Errorf("including %q from bundle %q: %w", includeSource, document.Name, err)
		}
		included = append(included, loaded)
	}

	// Includes apply first, in list order; the owning document goes
	// on top. Its includes list is consumed here and not carried
	// into the result.
	overlays := append(included[1:], document)
	return included[0].Compose(overlays...), nil
}

// resolve finds the handler for a URI and materializes the source.
func (l *Loader) resolve(ctx context.Context, uri source.ParsedURI) (source.ResolvedSource, error) {
	for _, handler := range l.handlers {
		if handler.CanHandle(uri) {
			return handler.Resolve(ctx, uri)
		}
	}
	return source.ResolvedSource{}, fmt.Errorf("no source handler for %q", uri.String())
}

// expandName expands registry-name indirection: a bare identifier
// (optionally with a subdirectory fragment) that matches a registered
// name is replaced by the registered URI. The include's own fragment
// wins over one in the registered URI.
func (l *Loader) expandName(identifier string) (string, bool) {
	if l.registry == nil {
		return identifier, false
	}
	name, fragment, hasFragment := strings.Cut(identifier, "#")
	if strings.ContainsAny(name, "/:.~\\") {
		return identifier, false
	}
	entry, ok := l.registry.Lookup(name)
	if !ok {
		return identifier, false
	}

	expanded := entry.URI
	if hasFragment {
		base, _, _ := strings.Cut(expanded, "#")
		expanded = base + "#" + fragment
	}
	return expanded, true
}
