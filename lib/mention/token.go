// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mention extracts @mention tokens from instruction text and
// resolves them to file content.
//
// A mention has the form @namespace:relative/path (addressing another
// bundle's files by its name) or a bare @relative/path (addressing
// the current bundle). Mentions are opportunistic documentation
// links: a mention whose target does not exist is skipped silently,
// never an error. Resolved content is deduplicated by content hash
// and loaded recursively — mentions inside mentioned files resolve
// too, up to a depth limit.
package mention

import "strings"

// Token is one parsed @mention.
type Token struct {
	// Raw is the token as it appeared in the text, including the @.
	Raw string

	// Namespace is the bundle name before the colon, empty for bare
	// mentions.
	Namespace string

	// Path is the relative path after the colon (or after the @ for
	// bare mentions).
	Path string
}

// trailingPunctuation is stripped from candidate tokens so a mention
// at the end of a sentence does not swallow the period.
const trailingPunctuation = ".,;:!?)]}'\""

// Parse extracts mention tokens from text in first-occurrence order,
// duplicates included — deduplication is a resolution-time concern.
//
// A candidate @token only counts when it is delimited by a word
// boundary (so user@host.example is not a mention) and its body has
// one of the two mention shapes: namespace:path, or a bare path that
// is recognizably a path (contains a slash, carries a file extension,
// or is home-relative).
func Parse(text string) []Token {
	var tokens []Token
	for index := 0; index < len(text); index++ {
		if text[index] != '@' {
			continue
		}
		// Word boundary: the @ must not be preceded by a word
		// character (e-mail addresses) or another @ (code idioms
		// like @@generated).
		if index > 0 && (isWordByte(text[index-1]) || text[index-1] == '@') {
			continue
		}

		end := index + 1
		for end < len(text) && isBodyByte(text[end]) {
			end++
		}
		body := strings.TrimRight(text[index+1:end], trailingPunctuation)
		if body == "" {
			continue
		}

		token, ok := classify(body)
		if !ok {
			continue
		}
		token.Raw = "@" + body
		tokens = append(tokens, token)
		index += len(body)
	}
	return tokens
}

// classify validates a token body and splits it into its parts.
func classify(body string) (Token, bool) {
	if namespace, path, found := strings.Cut(body, ":"); found {
		if !isValidNamespace(namespace) || path == "" || strings.Contains(path, ":") {
			return Token{}, false
		}
		return Token{Namespace: namespace, Path: path}, true
	}

	// Bare mentions must look like paths, not like plain words or
	// code identifiers: @important is prose, @notes.md is a mention.
	if !strings.HasPrefix(body, "~") && !strings.Contains(body, "/") && !hasExtension(body) {
		return Token{}, false
	}
	return Token{Path: body}, true
}

// isValidNamespace reports whether a namespace looks like a bundle
// name: starts alphanumeric, then word characters, dots, or hyphens.
func isValidNamespace(namespace string) bool {
	if namespace == "" || !isAlphanumericByte(namespace[0]) {
		return false
	}
	for i := 1; i < len(namespace); i++ {
		c := namespace[i]
		if !isWordByte(c) && c != '.' && c != '-' {
			return false
		}
	}
	return true
}

// hasExtension reports whether the final path segment carries a file
// extension (a dot followed by at least one alphanumeric character).
func hasExtension(body string) bool {
	dot := strings.LastIndexByte(body, '.')
	if dot <= 0 || dot == len(body)-1 {
		return false
	}
	for i := dot + 1; i < len(body); i++ {
		if !isAlphanumericByte(body[i]) {
			return false
		}
	}
	return true
}

// isBodyByte reports whether a byte may appear in a token body.
func isBodyByte(c byte) bool {
	return isWordByte(c) || c == '.' || c == '-' || c == '/' || c == ':' || c == '~'
}

func isWordByte(c byte) bool {
	return isAlphanumericByte(c) || c == '_'
}

func isAlphanumericByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
