// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry provides the name→URI bundle registry.
//
// A registry entry gives a bundle source a short name that includes
// and CLI commands can use instead of the full URI. The store is an
// explicit object constructed with its file path — there is no
// ambient global registry, and every call site receives the store it
// should use.
//
// The on-disk format is JSONC (JSON extended with comments and
// trailing commas), the same convention as pipeline definitions:
// human-authored files get comments, and saving writes plain
// deterministic JSON.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/tidwall/jsonc"
)

// namePattern restricts registry names to simple identifiers, so a
// name can never be confused with a path or URI in an include list.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Entry is one registered bundle source.
type Entry struct {
	// URI is the source identifier the name expands to.
	URI string `json:"uri"`

	// Description is optional prose about the bundle.
	Description string `json:"description,omitempty"`
}

// Store is a registry backed by one JSONC file.
type Store struct {
	path    string
	entries map[string]Entry
}

// Open loads the registry at path, starting empty when the file does
// not exist yet.
func Open(path string) (*Store, error) {
	store := &Store{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &store.entries); err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return store, nil
}

// Path returns the store's file path.
func (s *Store) Path() string {
	return s.path
}

// Add registers (or replaces) an entry. The name must be a simple
// identifier.
func (s *Store) Add(name string, entry Entry) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid registry name %q (want letters, digits, - or _)", name)
	}
	if entry.URI == "" {
		return fmt.Errorf("registry entry %q: empty URI", name)
	}
	s.entries[name] = entry
	return nil
}

// Remove deletes an entry, reporting whether it existed.
func (s *Store) Remove(name string) bool {
	_, existed := s.entries[name]
	delete(s.entries, name)
	return existed
}

// Lookup returns the entry for name.
func (s *Store) Lookup(name string) (Entry, bool) {
	entry, ok := s.entries[name]
	return entry, ok
}

// Names returns all registered names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the registry atomically as plain JSON (comments in a
// hand-edited file do not survive a programmatic save).
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}
	temp := s.path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := os.Rename(temp, s.path); err != nil {
		return fmt.Errorf("replacing registry: %w", err)
	}
	return nil
}
