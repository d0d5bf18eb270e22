// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mention

import (
	"os"
	"strings"
)

// DefaultMaxDepth is the default recursion limit for Load: the
// top-level text's own mentions are depth 1, mentions inside their
// content are depth 2, and so on.
const DefaultMaxDepth = 3

// Result is one resolved, newly-included mention.
type Result struct {
	// Token is the mention as parsed from the text.
	Token Token

	// Path is the resolved absolute file path.
	Path string

	// Content is the loaded file text.
	Content string
}

// LoadOptions configures Load. The zero value is valid.
type LoadOptions struct {
	// Dedup tracks content across this load (and across loads, when
	// the caller shares one). Nil means a fresh deduplicator.
	Dedup *Deduplicator

	// MaxDepth bounds recursion. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Load parses mentions in text, resolves each through resolver, and
// returns the newly-included results in resolution order. Mentions
// that do not resolve are skipped silently — they are opportunistic
// links, and a dangling one must never fail the caller's larger
// operation. Content that hashes identically to something already
// seen is skipped (the path is still recorded for attribution).
//
// Mentions inside loaded content are resolved recursively,
// depth-first, up to MaxDepth levels; deeper mentions are ignored
// without error.
func Load(text string, resolver Resolver, opts LoadOptions) []Result {
	dedup := opts.Dedup
	if dedup == nil {
		dedup = NewDeduplicator()
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return load(text, resolver, dedup, 1, maxDepth)
}

func load(text string, resolver Resolver, dedup *Deduplicator, depth, maxDepth int) []Result {
	if depth > maxDepth {
		return nil
	}

	var results []Result
	for _, token := range Parse(text) {
		path, found := resolver.Resolve(token)
		if !found {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			// Resolved but unreadable: treated like a missing
			// target, per the skip-and-continue contract.
			continue
		}
		content := string(data)

		if !dedup.Add(path, content) {
			continue
		}
		results = append(results, Result{Token: token, Path: path, Content: content})
		results = append(results, load(content, resolver, dedup, depth+1, maxDepth)...)
	}
	return results
}

// Inline expands resolved mentions into text: every occurrence of a
// result's token is replaced by its loaded content. Mentions with no
// result (unresolved or duplicate-suppressed) are left as written.
func Inline(text string, results []Result) string {
	for _, result := range results {
		text = strings.ReplaceAll(text, result.Token.Raw, result.Content)
	}
	return text
}
