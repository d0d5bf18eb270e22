// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"path/filepath"
	"testing"
)

func TestParseGitURI(t *testing.T) {
	uri, err := Parse("git+https://github.com/bureau-foundation/loadouts@main#subdirectory=bundles/review")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if uri.Scheme != "git+https" {
		t.Fatalf("scheme = %q", uri.Scheme)
	}
	if uri.Host != "github.com" {
		t.Fatalf("host = %q", uri.Host)
	}
	if uri.Path != "bureau-foundation/loadouts" {
		t.Fatalf("path = %q", uri.Path)
	}
	if uri.Ref != "main" {
		t.Fatalf("ref = %q", uri.Ref)
	}
	if uri.Subpath != "bundles/review" {
		t.Fatalf("subpath = %q", uri.Subpath)
	}
	if !uri.IsGit() || uri.IsLocal() {
		t.Fatalf("classification wrong: IsGit=%v IsLocal=%v", uri.IsGit(), uri.IsLocal())
	}
	if uri.CloneURL() != "https://github.com/bureau-foundation/loadouts" {
		t.Fatalf("clone URL = %q", uri.CloneURL())
	}
}

func TestParseRefWithSlashes(t *testing.T) {
	uri, err := Parse("https://example.com/team/bundles@feature/new-merge")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if uri.Ref != "feature/new-merge" {
		t.Fatalf("ref = %q, want everything after the last @", uri.Ref)
	}
	if uri.Path != "team/bundles" {
		t.Fatalf("path = %q", uri.Path)
	}
}

func TestParseLocalPaths(t *testing.T) {
	for _, identifier := range []string{"./bundles/base", "../shared", "/srv/loadouts/base", "~/loadouts/dev"} {
		uri, err := Parse(identifier)
		if err != nil {
			t.Fatalf("Parse(%q): %v", identifier, err)
		}
		if !uri.IsLocal() {
			t.Fatalf("Parse(%q): not local", identifier)
		}
		if uri.Path != identifier {
			t.Fatalf("Parse(%q): path = %q", identifier, uri.Path)
		}
	}
}

func TestParseFileURI(t *testing.T) {
	uri, err := Parse("file:///srv/loadouts/base#subdirectory=agents")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !uri.IsLocal() || uri.Path != "/srv/loadouts/base" || uri.Subpath != "agents" {
		t.Fatalf("parsed = %+v", uri)
	}
}

func TestParseRejectsMalformedIdentifiers(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"git+https://github.com/repo#fragment=oops",
		"git+https://github.com/repo#subdirectory=",
		"https://hostonly",
		"https://example.com/repo@",
	}
	for _, identifier := range cases {
		if _, err := Parse(identifier); err == nil {
			t.Errorf("Parse(%q) accepted a malformed identifier", identifier)
		}
	}
}

func TestBaseStripsQualifiers(t *testing.T) {
	withQualifiers, err := Parse("git+https://example.com/team/bundles@v2#subdirectory=review")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	bare, err := Parse("git+https://example.com/team/bundles")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if withQualifiers.Base() != bare.Base() {
		t.Fatalf("bases differ: %q vs %q", withQualifiers.Base(), bare.Base())
	}
}

func TestBaseCanonicalizesLocalPaths(t *testing.T) {
	absolute, err := Parse("/work/bundles/base")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dotted, err := Parse("/work/bundles/../bundles/base")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if absolute.Base() != dotted.Base() {
		t.Fatalf("bases differ: %q vs %q", absolute.Base(), dotted.Base())
	}
	if absolute.Base() != "file:///work/bundles/base" {
		t.Fatalf("base = %q", absolute.Base())
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, identifier := range []string{
		"git+https://example.com/team/bundles@v2#subdirectory=review",
		"https://example.com/team/bundles",
		"./bundles/base#subdirectory=agents",
		"/srv/loadouts/base",
	} {
		uri, err := Parse(identifier)
		if err != nil {
			t.Fatalf("Parse(%q): %v", identifier, err)
		}
		if uri.String() != identifier {
			t.Fatalf("String() = %q, want %q", uri.String(), identifier)
		}
	}
}

func TestLocalBaseMatchesParsedBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle")
	uri, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if uri.Base() != LocalBase(path) {
		t.Fatalf("Base() = %q, LocalBase = %q", uri.Base(), LocalBase(path))
	}
}
