// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mention

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// contentDomainKey is the BLAKE3 key for mention content hashes. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes: readable in hex dumps, and domain-separated from any
// other keyed hash in the system.
var contentDomainKey = [32]byte{
	'l', 'o', 'a', 'd', 'o', 'u', 't', '.', 'm', 'e', 'n', 't', 'i', 'o', 'n', '.',
	'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// ContextFile is one unique piece of mentioned content, with every
// path it was found at. Multiple paths mean the same bytes were
// reached through different mentions; all of them are credited.
type ContextFile struct {
	// Content is the file text.
	Content string

	// Hash is the hex-encoded keyed BLAKE3 hash of Content.
	Hash string

	// Paths are all resolved paths this content was found at, in
	// the order encountered.
	Paths []string
}

// Deduplicator tracks mentioned content by hash so identical content
// reached through different paths is included once. Its lifetime is
// one resolution pass unless the caller deliberately shares it across
// passes.
//
// Not safe for concurrent use: resolution is a single logical task.
type Deduplicator struct {
	order      []string
	contentFor map[string]string
	pathsFor   map[string][]string
}

// NewDeduplicator returns an empty deduplicator.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		contentFor: make(map[string]string),
		pathsFor:   make(map[string][]string),
	}
}

// Add records content found at path. It returns true when the content
// is new. Duplicate content returns false but still records the path
// for attribution.
func (d *Deduplicator) Add(path, content string) bool {
	hash := hashContent(content)

	if _, seen := d.contentFor[hash]; !seen {
		d.order = append(d.order, hash)
		d.contentFor[hash] = content
		d.pathsFor[hash] = []string{path}
		return true
	}

	for _, known := range d.pathsFor[hash] {
		if known == path {
			return false
		}
	}
	d.pathsFor[hash] = append(d.pathsFor[hash], path)
	return false
}

// Seen reports whether this exact content has been added before.
func (d *Deduplicator) Seen(content string) bool {
	_, seen := d.contentFor[hashContent(content)]
	return seen
}

// UniqueFiles returns one ContextFile per unique content, in
// first-seen order, each listing every path that produced it.
func (d *Deduplicator) UniqueFiles() []ContextFile {
	files := make([]ContextFile, 0, len(d.order))
	for _, hash := range d.order {
		files = append(files, ContextFile{
			Content: d.contentFor[hash],
			Hash:    hash,
			Paths:   append([]string(nil), d.pathsFor[hash]...),
		})
	}
	return files
}

// hashContent computes the hex-encoded keyed BLAKE3 hash of content.
func hashContent(content string) string {
	hasher, err := blake3.NewKeyed(contentDomainKey[:])
	if err != nil {
		// NewKeyed only fails for a wrong key length, which the
		// fixed-size key rules out.
		panic("mention: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write([]byte(content))
	return hex.EncodeToString(hasher.Sum(nil))
}
