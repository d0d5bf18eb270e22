// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pack moves bundle directories between machines as single
// archive files: a tar stream wrapped in a selectable compression
// layer. Zstd is the default (bundle content is text: markdown, YAML),
// LZ4 is available when encode speed matters more than ratio, and
// "none" exists for already-compressed content. Unpack sniffs the
// compression from the frame magic, so the file extension is
// informational only.
package pack

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the archive's compression layer.
type Compression string

const (
	// None stores the tar stream uncompressed.
	None Compression = "none"
	// LZ4 compresses with LZ4 frames (fast, moderate ratio).
	LZ4 Compression = "lz4"
	// Zstd compresses with zstd (better ratio on text, the default).
	Zstd Compression = "zstd"
)

// Frame magics used by Unpack to sniff the compression layer.
var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// ParseCompression parses a compression name as given on the command
// line.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case None, LZ4, Zstd:
		return Compression(name), nil
	}
	return "", fmt.Errorf("unknown compression %q (want none, lz4, or zstd)", name)
}

// Extension returns the conventional archive file extension.
func (c Compression) Extension() string {
	switch c {
	case LZ4:
		return ".tar.lz4"
	case Zstd:
		return ".tar.zst"
	default:
		return ".tar"
	}
}

// Pack archives the bundle directory at dir into outputPath. Paths
// inside the archive are relative to dir, so unpacking recreates the
// bundle directory's contents directly under the destination.
func Pack(dir, outputPath string, compression Compression) error {
	output, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer output.Close()

	var compressed io.WriteCloser
	switch compression {
	case Zstd:
		compressed, err = zstd.NewWriter(output)
		if err != nil {
			return fmt.Errorf("initializing zstd: %w", err)
		}
	case LZ4:
		compressed = lz4.NewWriter(output)
	case None:
		compressed = output
	default:
		return fmt.Errorf("unknown compression %q", compression)
	}

	archive := tar.NewWriter(compressed)
	if err := writeTree(archive, dir); err != nil {
		return err
	}
	if err := archive.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	if compression != None {
		if err := compressed.Close(); err != nil {
			return fmt.Errorf("finishing compression: %w", err)
		}
	}
	return output.Close()
}

// writeTree walks dir and writes every regular file and directory to
// the archive. Symlinks are skipped: bundle content is plain files,
// and links would escape the bundle root on unpack.
func writeTree(archive *tar.Writer, dir string) error {
	return filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if relative == "." {
			return nil
		}
		name := filepath.ToSlash(relative)

		info, err := entry.Info()
		if err != nil {
			return err
		}

		switch {
		case entry.IsDir():
			header := &tar.Header{
				Typeflag: tar.TypeDir,
				Name:     name + "/",
				Mode:     0o755,
				ModTime:  info.ModTime(),
			}
			return archive.WriteHeader(header)
		case info.Mode().IsRegular():
			header := &tar.Header{
				Typeflag: tar.TypeReg,
				Name:     name,
				Mode:     0o644,
				Size:     info.Size(),
				ModTime:  info.ModTime(),
			}
			if err := archive.WriteHeader(header); err != nil {
				return err
			}
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(archive, file)
			file.Close()
			return copyErr
		default:
			return nil
		}
	})
}

// Unpack extracts an archive produced by Pack into destDir, sniffing
// the compression layer from the stream's leading bytes. Entries that
// would escape destDir are rejected.
func Unpack(archivePath, destDir string) error {
	input, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer input.Close()

	header := make([]byte, 4)
	n, err := io.ReadFull(input, header)
	if err != nil && n == 0 {
		return fmt.Errorf("reading archive: %w", err)
	}
	stream := io.MultiReader(bytes.NewReader(header[:n]), input)

	var decompressed io.Reader
	switch {
	case bytes.Equal(header[:n], zstdMagic):
		decoder, err := zstd.NewReader(stream)
		if err != nil {
			return fmt.Errorf("initializing zstd: %w", err)
		}
		defer decoder.Close()
		decompressed = decoder
	case bytes.Equal(header[:n], lz4Magic):
		decompressed = lz4.NewReader(stream)
	default:
		decompressed = stream
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	archive := tar.NewReader(decompressed)
	for {
		entry, err := archive.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading archive: %w", err)
		}

		target, err := safeJoin(destDir, entry.Name)
		if err != nil {
			return err
		}

		switch entry.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(file, archive); err != nil {
				file.Close()
				return fmt.Errorf("extracting %s: %w", entry.Name, err)
			}
			if err := file.Close(); err != nil {
				return err
			}
		}
	}
}

// safeJoin joins an archive entry name beneath destDir, rejecting
// absolute names and parent-directory escapes.
func safeJoin(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return filepath.Join(destDir, cleaned), nil
}
