// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadout/cmd/loadout/cli"
	"github.com/bureau-foundation/loadout/lib/mention"
)

func mentionsCommand() *cli.Command {
	var (
		cacheDir     string
		registryPath string
		jsonOutput   bool
		verbose      bool
	)

	return &cli.Command{
		Name:    "mentions",
		Summary: "List the @mentions a source resolves",
		Description: `Parse @mentions from a markdown file or a composed bundle's
instruction, resolve each, and report where it points. Unresolved
mentions are listed too: they stay literal text at expansion time,
but seeing them helps debug a namespace or path typo.`,
		Usage: "loadout mentions [flags] <file-or-source>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("mentions", pflag.ContinueOnError)
			flags.StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory for git source clones")
			flags.StringVar(&registryPath, "registry", defaultRegistryPath(), "registry file for name resolution")
			flags.BoolVar(&jsonOutput, "json", false, "print JSON instead of text")
			flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one file or source, got %d", len(args))
			}

			text, resolver, err := mentionInput(args[0], cacheDir, registryPath, verbose)
			if err != nil {
				return err
			}

			report := buildMentionReport(text, resolver)
			if jsonOutput {
				return cli.WriteJSON(report)
			}
			for _, entry := range report.Mentions {
				if entry.Path == "" {
					fmt.Printf("%s\t(unresolved)\n", entry.Mention)
					continue
				}
				fmt.Printf("%s\t%s\n", entry.Mention, entry.Path)
			}
			for _, file := range report.Files {
				fmt.Printf("%s\t%s\n", file.Hash[:12], file.Paths[0])
				for _, duplicate := range file.Paths[1:] {
					fmt.Printf("%s\t%s (same content)\n", file.Hash[:12], duplicate)
				}
			}
			return nil
		},
	}
}

// mentionInput returns the text to scan and a resolver for it. A plain
// file on disk is scanned directly with mentions anchored at its
// directory; anything else is treated as a bundle source and composed.
func mentionInput(identifier, cacheDir, registryPath string, verbose bool) (string, mention.Resolver, error) {
	if info, err := os.Stat(identifier); err == nil && !info.IsDir() {
		data, err := os.ReadFile(identifier)
		if err != nil {
			return "", nil, err
		}
		resolver := mention.NewBaseResolver()
		return string(data), resolver, nil
	}

	composed, err := loadComposed(identifier, cacheDir, registryPath, verbose)
	if err != nil {
		return "", nil, err
	}
	resolver := mention.NewBaseResolver()
	resolver.RelativeTo = composed.BasePath
	resolver.RegisterBundle(composed.Name, composed)
	return composed.Instruction, resolver, nil
}

// mentionReport is the mentions command output: every parsed mention
// with its resolution, plus the unique files (with content hashes and
// every path that contributed the same content).
type mentionReport struct {
	Mentions []mentionEntry `json:"mentions"`
	Files    []fileEntry    `json:"files"`
}

type mentionEntry struct {
	Mention string `json:"mention"`
	Path    string `json:"path,omitempty"`
}

// fileEntry reports one unique content blob without the content
// itself: the hash identifies it, the paths credit every mention that
// supplied the same bytes.
type fileEntry struct {
	Hash  string   `json:"hash"`
	Paths []string `json:"paths"`
}

func buildMentionReport(text string, resolver mention.Resolver) mentionReport {
	var report mentionReport
	for _, token := range mention.Parse(text) {
		path, found := resolver.Resolve(token)
		entry := mentionEntry{Mention: token.Raw}
		if found {
			entry.Path = path
		}
		report.Mentions = append(report.Mentions, entry)
	}

	dedup := mention.NewDeduplicator()
	mention.Load(text, resolver, mention.LoadOptions{Dedup: dedup})
	for _, file := range dedup.UniqueFiles() {
		report.Files = append(report.Files, fileEntry{Hash: file.Hash, Paths: file.Paths})
	}
	return report
}
