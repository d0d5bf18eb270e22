// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"compile", "compile", 0},
		{"compile", "comple", 1},
		{"regstry", "registry", 1},
		{"pack", "unpack", 2},
		{"show", "mentions", 8},
	}
	for _, tc := range cases {
		if got := levenshtein(tc.a, tc.b); got != tc.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "compile"},
		{Name: "registry"},
		{Name: "show"},
	}
	if got := suggestCommand("comple", commands); got != "compile" {
		t.Fatalf("suggestCommand(comple) = %q, want compile", got)
	}
	if got := suggestCommand("regstry", commands); got != "registry" {
		t.Fatalf("suggestCommand(regstry) = %q, want registry", got)
	}
	// Nothing within the edit-distance threshold.
	if got := suggestCommand("completely-unrelated", commands); got != "" {
		t.Fatalf("suggestCommand(completely-unrelated) = %q, want none", got)
	}
}

func TestSuggestFlag(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flagSet.Bool("verbose", false, "")
	flagSet.String("cache-dir", "", "")

	if got := suggestFlag([]string{"--cachedir", "x"}, flagSet); got != "--cache-dir" {
		t.Fatalf("suggestFlag(--cachedir) = %q, want --cache-dir", got)
	}
	if got := suggestFlag([]string{"--verbose"}, flagSet); got != "" {
		t.Fatalf("suggestFlag on a defined flag = %q, want none", got)
	}
}
