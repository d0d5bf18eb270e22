// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"fmt"
)

// ResolvedSource is the outcome of materializing a source on the local
// filesystem.
type ResolvedSource struct {
	// ActivePath is the directory (or file) the identifier addresses,
	// with any #subdirectory= fragment applied.
	ActivePath string

	// SourceRoot is the root of the repository or bundle tree the
	// active path lives in. For a subdirectory reference this is the
	// directory the fragment was applied beneath; for files inside
	// the fetch cache it is the cached repository root. Mention
	// resolution attributes files to this root's namespace.
	SourceRoot string
}

// Handler materializes one family of source identifiers. Handlers are
// consulted in order; the first one whose CanHandle returns true wins.
type Handler interface {
	// CanHandle reports whether this handler understands the URI.
	CanHandle(uri ParsedURI) bool

	// Resolve materializes the source and returns local paths.
	// A missing source is a *NotFoundError.
	Resolve(ctx context.Context, uri ParsedURI) (ResolvedSource, error)
}

// NotFoundError reports that a source identifier does not name an
// existing bundle. The loader wraps it with include-chain context;
// callers can detect it with errors.As.
type NotFoundError struct {
	// Source is the identifier or path that failed to resolve.
	Source string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("bundle source not found: %s", e.Source)
}
