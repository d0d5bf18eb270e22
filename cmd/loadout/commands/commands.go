// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete loadout CLI command tree.
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/loadout/cmd/loadout/cli"
	"github.com/bureau-foundation/loadout/lib/version"
)

// Root builds and returns the complete loadout CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "loadout",
		Description: `loadout: agent session composition.

Compose bundle documents (YAML frontmatter + markdown instruction)
into the configuration an agent session mounts: merged session
settings, provider/tool/hook module lists, and an instruction with
@mentions expanded.`,
		Subcommands: []*cli.Command{
			compileCommand(),
			showCommand(),
			mentionsCommand(),
			validateCommand(),
			registryCommand(),
			packCommand(),
			unpackCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("loadout %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Compose a bundle directory and print the result",
				Command:     "loadout compile ./bundles/reviewer",
			},
			{
				Description: "Compile straight from a git source at a tag",
				Command:     "loadout compile git+https://example.com/bundles.git@v1.2.0#subdirectory=reviewer",
			},
			{
				Description: "Print the mount plan an agent session would receive",
				Command:     "loadout compile --plan --json ./bundles/reviewer",
			},
			{
				Description: "Read the composed instruction in the terminal",
				Command:     "loadout show ./bundles/reviewer",
			},
			{
				Description: "Register a name for a shared bundle source",
				Command:     "loadout registry add reviewer git+https://example.com/bundles.git#subdirectory=reviewer",
			},
		},
	}
}

// defaultCacheDir is where git sources are cloned when --cache-dir is
// not given.
func defaultCacheDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "loadout")
	}
	return filepath.Join(os.TempDir(), "loadout-cache")
}

// defaultRegistryPath is the per-user registry location.
func defaultRegistryPath() string {
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "loadout", "registry.json")
	}
	return filepath.Join(os.TempDir(), "loadout-registry.json")
}
