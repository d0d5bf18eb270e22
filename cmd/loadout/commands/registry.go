// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/loadout/cmd/loadout/cli"
	"github.com/bureau-foundation/loadout/lib/registry"
)

func registryCommand() *cli.Command {
	var registryPath string

	registryFlags := func(name string) *pflag.FlagSet {
		flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
		flags.StringVar(&registryPath, "registry", defaultRegistryPath(), "registry file")
		return flags
	}

	var description string

	return &cli.Command{
		Name:    "registry",
		Summary: "Manage bundle name registrations",
		Description: `The registry maps short names to bundle source URIs so include
lists and the command line can say "reviewer" instead of a full git
URI. It is a local JSON file (comments tolerated); teams typically
check one into a repository and point --registry at it.`,
		Subcommands: []*cli.Command{
			{
				Name:    "add",
				Summary: "Register a name for a source URI",
				Usage:   "loadout registry add [flags] <name> <uri>",
				Flags: func() *pflag.FlagSet {
					flags := registryFlags("add")
					flags.StringVar(&description, "description", "", "human-readable note stored with the entry")
					return flags
				},
				Run: func(args []string) error {
					if len(args) != 2 {
						return fmt.Errorf("expected <name> <uri>, got %d args", len(args))
					}
					store, err := registry.Open(registryPath)
					if err != nil {
						return err
					}
					entry := registry.Entry{URI: args[1], Description: description}
					if err := store.Add(args[0], entry); err != nil {
						return err
					}
					return store.Save()
				},
			},
			{
				Name:    "remove",
				Summary: "Remove a registered name",
				Usage:   "loadout registry remove [flags] <name>",
				Flags:   func() *pflag.FlagSet { return registryFlags("remove") },
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("expected exactly one name, got %d", len(args))
					}
					store, err := registry.Open(registryPath)
					if err != nil {
						return err
					}
					if !store.Remove(args[0]) {
						return fmt.Errorf("name %q is not registered", args[0])
					}
					return store.Save()
				},
			},
			{
				Name:    "list",
				Summary: "List registered names",
				Usage:   "loadout registry list [flags]",
				Flags:   func() *pflag.FlagSet { return registryFlags("list") },
				Run: func(args []string) error {
					store, err := registry.Open(registryPath)
					if err != nil {
						return err
					}
					for _, name := range store.Names() {
						entry, _ := store.Lookup(name)
						if entry.Description != "" {
							fmt.Printf("%s\t%s\t%s\n", name, entry.URI, entry.Description)
							continue
						}
						fmt.Printf("%s\t%s\n", name, entry.URI)
					}
					return nil
				},
			},
		},
	}
}
