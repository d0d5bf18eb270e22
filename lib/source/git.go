// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// GitHandler fetches git-hosted sources into a local cache directory.
// It shells out to the ambient git binary; credentials and transport
// configuration are git's problem, not ours.
type GitHandler struct {
	// CacheDir is where clones live. Each base URI gets one clone,
	// named <repo>-<hash12>, shared across refs and subdirectories.
	CacheDir string

	// Index records what has been fetched. Optional; a nil index
	// still works, it just refetches state knowledge from disk.
	Index *CacheIndex
}

// CanHandle reports true for git-fetchable sources.
func (h *GitHandler) CanHandle(uri ParsedURI) bool {
	return uri.IsGit()
}

// Resolve clones or updates the cached copy of the repository, checks
// out the requested ref, and returns the active path with any
// subdirectory fragment applied.
func (h *GitHandler) Resolve(ctx context.Context, uri ParsedURI) (ResolvedSource, error) {
	cloneDir := filepath.Join(h.CacheDir, h.cloneName(uri))

	if _, err := os.Stat(filepath.Join(cloneDir, ".git")); err != nil {
		if err := os.MkdirAll(h.CacheDir, 0o755); err != nil {
			return ResolvedSource{}, fmt.Errorf("creating cache directory: %w", err)
		}
		if _, err := runGit(ctx, h.CacheDir, "clone", "--quiet", uri.CloneURL(), cloneDir); err != nil {
			return ResolvedSource{}, fmt.Errorf("cloning %s: %w", uri.CloneURL(), err)
		}
	} else {
		if _, err := runGit(ctx, cloneDir, "fetch", "--quiet", "--tags", "origin"); err != nil {
			return ResolvedSource{}, fmt.Errorf("fetching %s: %w", uri.CloneURL(), err)
		}
	}

	if uri.Ref != "" {
		if _, err := runGit(ctx, cloneDir, "checkout", "--quiet", "--detach", uri.Ref); err != nil {
			return ResolvedSource{}, fmt.Errorf("checking out ref %q of %s: %w", uri.Ref, uri.CloneURL(), err)
		}
	}

	if h.Index != nil {
		h.Index.Record(uri.Base(), CacheEntry{
			CloneDir:  cloneDir,
			Ref:       uri.Ref,
			FetchedAt: time.Now().UTC(),
		})
	}

	activePath := cloneDir
	if uri.Subpath != "" {
		activePath = filepath.Join(cloneDir, filepath.FromSlash(uri.Subpath))
		if _, err := os.Stat(activePath); err != nil {
			return ResolvedSource{}, &NotFoundError{Source: uri.String()}
		}
	}

	return ResolvedSource{ActivePath: activePath, SourceRoot: cloneDir}, nil
}

// cloneName builds the cache directory name for a base URI: the last
// path element followed by the first 12 hex characters of the base
// URI's BLAKE3 hash. The hash keeps distinct repositories with the
// same name apart; the readable prefix keeps the cache inspectable.
func (h *GitHandler) cloneName(uri ParsedURI) string {
	base := uri.Base()
	digest := blake3.Sum256([]byte(base))
	name := path.Base(uri.Path)
	name = strings.TrimSuffix(name, ".git")
	if name == "" || name == "." || name == "/" {
		name = "repo"
	}
	return name + "-" + hex.EncodeToString(digest[:6])
}

// runGit executes a git command targeting dir via the -C flag and
// returns stdout. Stderr is captured separately and included in error
// messages on failure.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
