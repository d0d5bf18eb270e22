// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"strings"

	"github.com/bureau-foundation/loadout/lib/source"
)

// baseCause records why a base URI entered the loading set. The
// distinction matters for cycle detection: re-entering a base that is
// only loading because of a namespace preload is legitimate when the
// re-entry comes through registry-name indirection.
type baseCause int

const (
	causeInclude baseCause = iota
	causePreload
)

// loadState is the cycle-detection state for one top-level Load call
// tree. It is created fresh per call and passed down through the
// recursion — never shared between unrelated loads, so concurrent
// independent loads cannot cross-talk.
//
// Two sets are tracked: full include URIs currently resolving (an
// exact repeat is always a genuine cycle) and base URIs currently
// resolving with their cause. Base identity is what makes detection
// correct: the same physical bundle can be legitimately referenced
// through a namespace alias, a subdirectory-qualified path, and its
// bare root, and naive full-string matching would reject those.
type loadState struct {
	loadingURIs  map[string]bool
	loadingBases map[string]baseCause
	chain        []string
}

// frame records what one enter call added, so leave can remove
// exactly that.
type frame struct {
	full         string
	addedBase    string
	addedPreload []string
}

func newLoadState() *loadState {
	return &loadState{
		loadingURIs:  make(map[string]bool),
		loadingBases: make(map[string]baseCause),
	}
}

// enter checks whether loading uri now would close a cycle, and if
// not, marks it as loading. viaRegistry reports that the include
// reached this URI through registry-name indirection.
//
// Re-entry into an already-loading base URI is allowed in exactly two
// shapes:
//
//  1. The include carries an explicit subdirectory fragment: a bundle
//     referencing one of its own subdirectories is not a cycle.
//  2. The include reached the base through a registered name, and the
//     base is loading only because of a namespace preload — the
//     pattern of a bundle pre-registering its own root for mention
//     resolution and then including a non-conflicting part of it.
//
// Anything else is a genuine circular dependency.
func (s *loadState) enter(uri source.ParsedURI, viaRegistry bool) (*frame, error) {
	full := uri.String()
	if s.loadingURIs[full] {
		return nil, &CircularIncludeError{Chain: append(append([]string(nil), s.chain...), full)}
	}

	base := uri.Base()
	if cause, loading := s.loadingBases[base]; loading {
		switch {
		case uri.Subpath != "":
			// Intra-bundle subdirectory reference.
		case viaRegistry && cause == causePreload:
			// Namespace preload self-reference.
		default:
			return nil, &CircularIncludeError{Chain: append(append([]string(nil), s.chain...), full)}
		}
	}

	entered := &frame{full: full}
	s.loadingURIs[full] = true
	// Only a root-document load claims its base as include-loading.
	// A subdirectory-qualified load addresses a part, not the root;
	// marking the root here would misattribute a later namespace
	// preload of the same root and block legitimate re-entry.
	if _, present := s.loadingBases[base]; !present && uri.Subpath == "" {
		s.loadingBases[base] = causeInclude
		entered.addedBase = base
	}
	s.chain = append(s.chain, full)
	return entered, nil
}

// preload marks a base URI as loading on behalf of a namespace
// registration rather than an include edge. No-op when the base is
// already loading for any reason.
func (s *loadState) preload(entered *frame, base string) {
	if _, present := s.loadingBases[base]; present {
		return
	}
	s.loadingBases[base] = causePreload
	entered.addedPreload = append(entered.addedPreload, base)
}

// leave removes what enter (and any preloads on this frame) added.
func (s *loadState) leave(entered *frame) {
	delete(s.loadingURIs, entered.full)
	if entered.addedBase != "" {
		delete(s.loadingBases, entered.addedBase)
	}
	for _, base := range entered.addedPreload {
		delete(s.loadingBases, base)
	}
	s.chain = s.chain[:len(s.chain)-1]
}

// CircularIncludeError reports a genuine include cycle. Chain holds
// the full sequence of URIs from the top-level load to the repeated
// entry, so the error names every participant.
type CircularIncludeError struct {
	Chain []string
}

func (e *CircularIncludeError) Error() string {
	return "circular bundle include: " + strings.Join(e.Chain, " -> ")
}
