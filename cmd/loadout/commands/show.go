// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/loadout/cmd/loadout/cli"
	"github.com/bureau-foundation/loadout/cmd/loadout/render"
)

func showCommand() *cli.Command {
	var (
		cacheDir     string
		registryPath string
		width        int
		raw          bool
		verbose      bool
	)

	return &cli.Command{
		Name:    "show",
		Summary: "Render a composed instruction for reading",
		Description: `Compose a bundle and render its instruction (with @mentions
expanded) as styled terminal markdown, reflowed to the terminal
width. With --raw, print the markdown source unstyled.`,
		Usage: "loadout show [flags] <source>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory for git source clones")
			flags.StringVar(&registryPath, "registry", defaultRegistryPath(), "registry file for name resolution")
			flags.IntVar(&width, "width", 0, "render width (0 means the terminal width)")
			flags.BoolVar(&raw, "raw", false, "print markdown source without styling")
			flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one source, got %d", len(args))
			}

			composed, err := loadComposed(args[0], cacheDir, registryPath, verbose)
			if err != nil {
				return err
			}
			instruction := expandInstruction(composed)

			if raw {
				fmt.Print(instruction)
				return nil
			}

			if width <= 0 {
				width = 80
				if columns, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && columns > 0 {
					width = columns
				}
			}
			fmt.Print(render.Markdown(instruction, width))
			return nil
		},
	}
}
