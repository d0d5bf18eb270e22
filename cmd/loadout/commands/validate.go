// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadout/cmd/loadout/cli"
	"github.com/bureau-foundation/loadout/lib/bundle"
)

func validateCommand() *cli.Command {
	var compose bool
	var cacheDir string
	var registryPath string
	var verbose bool

	return &cli.Command{
		Name:    "validate",
		Summary: "Check a bundle document without composing it",
		Description: `Parse a bundle document and check its identity fields (name plus
version, or name plus description). With --compose, also resolve
includes end to end, which surfaces missing sources and circular
include chains.`,
		Usage: "loadout validate [flags] <path-or-source>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("validate", pflag.ContinueOnError)
			flags.BoolVar(&compose, "compose", false, "also resolve includes end to end")
			flags.StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory for git source clones")
			flags.StringVar(&registryPath, "registry", defaultRegistryPath(), "registry file for name resolution")
			flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one path or source, got %d", len(args))
			}

			if compose {
				composed, err := loadComposed(args[0], cacheDir, registryPath, verbose)
				if err != nil {
					return err
				}
				fmt.Printf("ok: %s composes cleanly\n", composed.Name)
				return nil
			}

			document, err := bundle.ReadFile(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ok: %s\n", document.Name)
			return nil
		},
	}
}
