// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadout/cmd/loadout/cli"
	"github.com/bureau-foundation/loadout/lib/bundle"
	"github.com/bureau-foundation/loadout/lib/pack"
)

func packCommand() *cli.Command {
	var output string
	var compressionName string

	return &cli.Command{
		Name:    "pack",
		Summary: "Archive a bundle directory",
		Description: `Archive a bundle directory (its document plus context files) into
a single compressed file for distribution. The directory must
contain a valid bundle document; archives of arbitrary trees are
refused so a stray path does not ship as a bundle.`,
		Usage: "loadout pack [flags] <bundle-dir>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("pack", pflag.ContinueOnError)
			flags.StringVarP(&output, "output", "o", "", "archive path (default: <dir><ext> beside the bundle)")
			flags.StringVar(&compressionName, "compression", "zstd", "compression: zstd, lz4, or none")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one bundle directory, got %d", len(args))
			}
			dir := args[0]

			// Refuse directories that are not bundles.
			if _, err := bundle.ReadFile(dir); err != nil {
				return fmt.Errorf("not a bundle directory: %w", err)
			}

			compression, err := pack.ParseCompression(compressionName)
			if err != nil {
				return err
			}

			if output == "" {
				output = strings.TrimSuffix(filepath.Clean(dir), string(filepath.Separator)) + compression.Extension()
			}
			if err := pack.Pack(dir, output, compression); err != nil {
				return err
			}
			fmt.Printf("packed %s\n", output)
			return nil
		},
	}
}

func unpackCommand() *cli.Command {
	return &cli.Command{
		Name:    "unpack",
		Summary: "Extract a bundle archive",
		Description: `Extract an archive produced by pack into a directory. The
compression layer is sniffed from the archive's leading bytes, so
any of the pack formats extracts without flags.`,
		Usage: "loadout unpack <archive> <dest-dir>",
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <archive> <dest-dir>, got %d args", len(args))
			}
			if err := pack.Unpack(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("unpacked into %s\n", args[1])
			return nil
		},
	}
}
