// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bureau-foundation/loadout/lib/codec"
)

// indexFileName is the cache index file, stored at the cache root.
const indexFileName = "index.cbor"

// CacheEntry records one fetched repository.
type CacheEntry struct {
	// CloneDir is the absolute path of the cached clone.
	CloneDir string `cbor:"clone_dir"`

	// Ref is the last ref checked out, empty for the default branch.
	Ref string `cbor:"ref,omitempty"`

	// FetchedAt is when the clone was last cloned or fetched.
	FetchedAt time.Time `cbor:"fetched_at"`
}

// CacheIndex tracks fetched sources by base URI. It is persisted as
// deterministic CBOR at the cache root, so identical cache state
// always produces identical index bytes. Safe for concurrent use.
type CacheIndex struct {
	dir string

	mu      sync.Mutex
	entries map[string]CacheEntry
}

// OpenCacheIndex loads the index from cacheDir, starting empty when
// no index file exists yet.
func OpenCacheIndex(cacheDir string) (*CacheIndex, error) {
	index := &CacheIndex{dir: cacheDir, entries: make(map[string]CacheEntry)}

	data, err := os.ReadFile(filepath.Join(cacheDir, indexFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return index, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache index: %w", err)
	}
	if err := codec.Unmarshal(data, &index.entries); err != nil {
		return nil, fmt.Errorf("cache index %s: %w", filepath.Join(cacheDir, indexFileName), err)
	}
	return index, nil
}

// Record stores (or replaces) the entry for a base URI.
func (index *CacheIndex) Record(baseURI string, entry CacheEntry) {
	index.mu.Lock()
	defer index.mu.Unlock()
	index.entries[baseURI] = entry
}

// Lookup returns the entry for a base URI.
func (index *CacheIndex) Lookup(baseURI string) (CacheEntry, bool) {
	index.mu.Lock()
	defer index.mu.Unlock()
	entry, ok := index.entries[baseURI]
	return entry, ok
}

// BaseURIs returns all recorded base URIs in sorted order.
func (index *CacheIndex) BaseURIs() []string {
	index.mu.Lock()
	defer index.mu.Unlock()
	uris := make([]string, 0, len(index.entries))
	for uri := range index.entries {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// Save writes the index file atomically (write-then-rename).
func (index *CacheIndex) Save() error {
	index.mu.Lock()
	defer index.mu.Unlock()

	data, err := codec.Marshal(index.entries)
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}
	if err := os.MkdirAll(index.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	target := filepath.Join(index.dir, indexFileName)
	temp := target + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("writing cache index: %w", err)
	}
	if err := os.Rename(temp, target); err != nil {
		return fmt.Errorf("replacing cache index: %w", err)
	}
	return nil
}
