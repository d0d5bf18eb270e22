// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package source parses and resolves bundle source identifiers.
//
// A source identifier names where a bundle's files come from. The
// grammar is:
//
//	[scheme+]transport://host/path[@ref][#subdirectory=subpath]
//
// plus bare local filesystem paths (absolute, ./relative, ../relative,
// or ~/home-relative). Examples:
//
//	git+https://github.com/bureau-foundation/loadouts@main#subdirectory=bundles/review
//	file:///srv/loadouts/base
//	./bundles/base
//	~/loadouts/dev#subdirectory=agents
//
// The last @ in the host/path portion separates the ref (branch, tag,
// or commit). The #subdirectory= fragment selects a directory beneath
// the source root; everything else about the source (clone URL, cache
// identity) ignores it.
package source

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ParsedURI is a parsed source identifier. It is a value type: parse
// once, pass by value, never mutate.
type ParsedURI struct {
	// Scheme is the full scheme as written, e.g. "git+https", "https",
	// "file". Empty for bare local paths.
	Scheme string

	// Host is the transport host, e.g. "github.com". Empty for local
	// paths and file URIs.
	Host string

	// Path is the repository or filesystem path. For remote URIs this
	// is the path component without a leading slash trimmed (e.g.
	// "bureau-foundation/loadouts"). For local sources it is the path
	// as written, before cleaning.
	Path string

	// Ref is the optional branch, tag, or commit from the @ref
	// qualifier. Empty means the source's default.
	Ref string

	// Subpath is the directory beneath the source root selected by a
	// #subdirectory= fragment. Empty means the root itself.
	Subpath string
}

// subdirectoryPrefix is the only fragment form the grammar accepts.
const subdirectoryPrefix = "subdirectory="

// Parse parses a source identifier string. It returns an error for an
// empty identifier or a fragment that is not a subdirectory selector;
// everything else is accepted structurally (whether the source exists
// is a resolution-time question).
func Parse(identifier string) (ParsedURI, error) {
	if strings.TrimSpace(identifier) == "" {
		return ParsedURI{}, fmt.Errorf("empty source identifier")
	}

	rest := identifier
	var subpath string
	if hashIndex := strings.Index(rest, "#"); hashIndex >= 0 {
		fragment := rest[hashIndex+1:]
		rest = rest[:hashIndex]
		if !strings.HasPrefix(fragment, subdirectoryPrefix) {
			return ParsedURI{}, fmt.Errorf("source %q: unsupported fragment %q (only #subdirectory=... is recognized)", identifier, fragment)
		}
		subpath = strings.Trim(strings.TrimPrefix(fragment, subdirectoryPrefix), "/")
		if subpath == "" {
			return ParsedURI{}, fmt.Errorf("source %q: empty subdirectory fragment", identifier)
		}
	}

	schemeIndex := strings.Index(rest, "://")
	if schemeIndex < 0 {
		// Bare local path. The ref qualifier does not apply to local
		// sources; an @ in a filename is taken literally.
		if rest == "" {
			return ParsedURI{}, fmt.Errorf("source %q: missing path", identifier)
		}
		return ParsedURI{Path: rest, Subpath: subpath}, nil
	}

	scheme := rest[:schemeIndex]
	remainder := rest[schemeIndex+3:]
	if scheme == "" {
		return ParsedURI{}, fmt.Errorf("source %q: empty scheme", identifier)
	}

	if scheme == "file" {
		// file URIs carry no host: file:///abs/path.
		return ParsedURI{Scheme: scheme, Path: remainder, Subpath: subpath}, nil
	}

	// The last @ separates the ref. Branch names may contain slashes
	// (feature/x), so everything after the last @ is the ref.
	var ref string
	if atIndex := strings.LastIndex(remainder, "@"); atIndex >= 0 {
		ref = remainder[atIndex+1:]
		remainder = remainder[:atIndex]
		if ref == "" {
			return ParsedURI{}, fmt.Errorf("source %q: empty ref after @", identifier)
		}
	}

	host, repoPath, found := strings.Cut(remainder, "/")
	if !found || host == "" {
		return ParsedURI{}, fmt.Errorf("source %q: missing host", identifier)
	}

	return ParsedURI{
		Scheme:  scheme,
		Host:    host,
		Path:    strings.Trim(repoPath, "/"),
		Ref:     ref,
		Subpath: subpath,
	}, nil
}

// IsLocal reports whether the source lives on the local filesystem
// (a bare path or a file URI).
func (u ParsedURI) IsLocal() bool {
	return u.Scheme == "" || u.Scheme == "file"
}

// IsGit reports whether the source is fetched with git. Both explicit
// git+ schemes and plain https URIs count: bundle repositories are the
// only https sources the loader understands.
func (u ParsedURI) IsGit() bool {
	return strings.HasPrefix(u.Scheme, "git+") || u.Scheme == "https" || u.Scheme == "http"
}

// CloneURL returns the URL to hand to git, with any git+ scheme
// prefix stripped and ref/subdirectory qualifiers removed.
func (u ParsedURI) CloneURL() string {
	scheme := strings.TrimPrefix(u.Scheme, "git+")
	return scheme + "://" + u.Host + "/" + u.Path
}

// Base returns the canonical base URI: the source identity with ref
// and subdirectory qualifiers stripped. This is the identity used for
// circular-include detection — two identifiers that address different
// subdirectories or refs of the same repository share a base.
//
// Local paths canonicalize to their cleaned absolute form (with ~
// expanded), so "./bundles/base" and "/work/bundles/base" collapse to
// the same base when they name the same directory.
func (u ParsedURI) Base() string {
	if u.IsLocal() {
		return "file://" + canonicalLocalPath(u.Path)
	}
	return u.Scheme + "://" + u.Host + "/" + strings.TrimSuffix(path.Clean(u.Path), "/")
}

// String reconstructs the canonical text form of the identifier,
// including ref and subdirectory qualifiers.
func (u ParsedURI) String() string {
	var builder strings.Builder
	if u.IsLocal() {
		builder.WriteString(u.Path)
	} else {
		builder.WriteString(u.Scheme)
		builder.WriteString("://")
		builder.WriteString(u.Host)
		builder.WriteString("/")
		builder.WriteString(u.Path)
		if u.Ref != "" {
			builder.WriteString("@")
			builder.WriteString(u.Ref)
		}
	}
	if u.Subpath != "" {
		builder.WriteString("#")
		builder.WriteString(subdirectoryPrefix)
		builder.WriteString(u.Subpath)
	}
	return builder.String()
}

// LocalBase returns the canonical base URI for a local directory,
// in the same form Base produces for local sources. The loader uses
// it to name a resolved source root (which it has as a filesystem
// path, not a URI) in its cycle-detection state.
func LocalBase(path string) string {
	return "file://" + canonicalLocalPath(path)
}

// canonicalLocalPath expands ~ and resolves a local path to its
// cleaned absolute form. Resolution failures (no home directory, no
// working directory) fall back to the cleaned input — the path will
// fail later at the filesystem with a clearer error.
func canonicalLocalPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if !filepath.IsAbs(p) {
		if wd, err := os.Getwd(); err == nil {
			p = filepath.Join(wd, p)
		}
	}
	return filepath.Clean(p)
}
