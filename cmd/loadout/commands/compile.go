// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/loadout/cmd/loadout/cli"
	"github.com/bureau-foundation/loadout/lib/bundle"
	"github.com/bureau-foundation/loadout/lib/loader"
	"github.com/bureau-foundation/loadout/lib/mention"
	"github.com/bureau-foundation/loadout/lib/registry"
)

func compileCommand() *cli.Command {
	var (
		cacheDir     string
		registryPath string
		jsonOutput   bool
		planOnly     bool
		expand       bool
		verbose      bool
	)

	return &cli.Command{
		Name:    "compile",
		Summary: "Compose a bundle and print the result",
		Description: `Load a bundle source, recursively resolve its includes, and print
the composed document. With --plan, print only the mount plan (the
session/provider/tool/hook/agent configuration an agent session
consumes). With --expand-mentions, @mentions in the instruction are
resolved and their file content inlined.`,
		Usage: "loadout compile [flags] <source>",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("compile", pflag.ContinueOnError)
			flags.StringVar(&cacheDir, "cache-dir", defaultCacheDir(), "directory for git source clones")
			flags.StringVar(&registryPath, "registry", defaultRegistryPath(), "registry file for name resolution")
			flags.BoolVar(&jsonOutput, "json", false, "print JSON instead of YAML")
			flags.BoolVar(&planOnly, "plan", false, "print only the mount plan")
			flags.BoolVar(&expand, "expand-mentions", false, "inline @mention file content into the instruction")
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

			if planOnly {
				plan := composed.MountPlan()
				if jsonOutput {
					return cli.WriteJSON(plan)
				}
				return cli.WriteYAML(plan)
			}

			instruction := composed.Instruction
			if expand {
				instruction = expandInstruction(composed)
			}

			if jsonOutput {
				return cli.WriteJSON(composedDocument{Bundle: composed, Instruction: instruction})
			}
			return writeDocument(composed, instruction)
		},
	}
}

// composedDocument is the JSON shape of a compile result: the composed
// frontmatter fields plus the instruction body, which the Bundle type
// itself keeps out of serialization.
type composedDocument struct {
	*bundle.Bundle
	Instruction string `json:"instruction"`
}

// writeDocument prints a composed bundle in document form: YAML
// frontmatter between --- fences, then the instruction body.
func writeDocument(composed *bundle.Bundle, instruction string) error {
	frontmatter, err := yaml.Marshal(composed)
	if err != nil {
		return err
	}
	var out strings.Builder
	out.WriteString("---\n")
	out.Write(frontmatter)
	out.WriteString("---\n")
	if instruction != "" {
		out.WriteString("\n")
		out.WriteString(instruction)
		if !strings.HasSuffix(instruction, "\n") {
			out.WriteString("\n")
		}
	}
	_, err = os.Stdout.WriteString(out.String())
	return err
}

// loadComposed opens the registry (best effort: a missing file is an
// empty registry), builds a loader, and loads the identifier.
func loadComposed(identifier, cacheDir, registryPath string, verbose bool) (*bundle.Bundle, error) {
	store, err := registry.Open(registryPath)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}

	composer, err := loader.New(loader.Options{
		CacheDir: cacheDir,
		Registry: store,
		Logger:   cli.NewCommandLogger(verbose).With("command", "load"),
	})
	if err != nil {
		return nil, err
	}
	return composer.Load(context.Background(), identifier)
}

// expandInstruction resolves @mentions in the composed instruction and
// inlines their content. Mention files addressable under any composed
// namespace resolve; dangling mentions stay as literal text.
func expandInstruction(composed *bundle.Bundle) string {
	resolver := mention.NewBaseResolver()
	resolver.RelativeTo = composed.BasePath
	resolver.RegisterBundle(composed.Name, composed)

	results := mention.Load(composed.Instruction, resolver, mention.LoadOptions{})
	return mention.Inline(composed.Instruction, results)
}
