// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// documentFileNames are the file names probed, in order, when a
// source resolves to a directory.
var documentFileNames = []string{"bundle.md", "bundle.yaml", "bundle.yml"}

// frontmatterDelimiter separates YAML metadata from the markdown
// instruction body.
const frontmatterDelimiter = "---"

// Parse parses one bundle document. Two layouts are accepted:
//
//   - Markdown-flavored: a YAML frontmatter block fenced by "---"
//     lines, followed by free text that becomes the instruction.
//   - Plain YAML: the whole document is metadata, no instruction
//     (behavior- and provider-flavored documents).
//
// basePath becomes the bundle's BasePath. Identity validation is
// applied before returning; a header that fails to parse or a missing
// identity field is a fatal error.
func Parse(data []byte, basePath string) (*Bundle, error) {
	header, body := splitFrontmatter(string(data))

	parsed := &Bundle{}
	if err := yaml.Unmarshal([]byte(header), parsed); err != nil {
		return nil, fmt.Errorf("parsing bundle metadata: %w", err)
	}
	parsed.Instruction = strings.TrimSpace(body)
	parsed.BasePath = basePath

	if err := parsed.Validate(); err != nil {
		return nil, err
	}
	return parsed, nil
}

// ReadFile reads and parses the bundle document at path. When path is
// a directory, the standard document file names are probed in order.
// The bundle's BasePath is the document's directory.
func ReadFile(path string) (*Bundle, error) {
	documentPath := path
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle: %w", err)
	}
	if info.IsDir() {
		documentPath, err = locateDocument(path)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(documentPath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", documentPath, err)
	}

	parsed, err := Parse(data, filepath.Dir(documentPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", documentPath, err)
	}
	return parsed, nil
}

// locateDocument finds the bundle document inside a directory.
func locateDocument(dir string) (string, error) {
	for _, name := range documentFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no bundle document in %s (looked for %s)", dir, strings.Join(documentFileNames, ", "))
}

// splitFrontmatter splits a document into its YAML header and body.
// A document must open with a "---" line to have frontmatter; the
// header runs to the next "---" line. Without delimiters the whole
// document is the header (plain YAML) and the body is empty.
func splitFrontmatter(document string) (header, body string) {
	normalized := strings.ReplaceAll(document, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontmatterDelimiter+"\n") {
		return normalized, ""
	}

	rest := normalized[len(frontmatterDelimiter)+1:]
	if closing := strings.Index(rest, "\n"+frontmatterDelimiter+"\n"); closing >= 0 {
		return rest[:closing], rest[closing+len(frontmatterDelimiter)+2:]
	}
	if strings.HasSuffix(rest, "\n"+frontmatterDelimiter) {
		return strings.TrimSuffix(rest, "\n"+frontmatterDelimiter), ""
	}
	// Unterminated frontmatter: treat the remainder as header and
	// let the YAML parser report what is wrong with it.
	return rest, ""
}
