// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"fmt"
	"os"
)

// HeaderSummary is metadata read from the archive header line without
// loading or decoding the index.
type HeaderSummary struct {
	// Version is the classified header variant.
	Version Version `json:"version" yaml:"version"`
	// IndexOffset is the header-declared index position.
	IndexOffset uint64 `json:"index_offset" yaml:"index_offset"`
	// Key is the derived obfuscation key.
	Key uint32 `json:"key" yaml:"key"`
}

// Probe reads only the archive header line: version, index offset, and key.
// Useful for identification workflows that do not need the entry list.
func Probe(path string) (HeaderSummary, error) {
	var summary HeaderSummary

	f, err := os.Open(path)
	if err != nil {
		return summary, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	header, err := parseHeader(f)
	if err != nil {
		return summary, err
	}

	summary.Version = header.version
	summary.IndexOffset = header.indexOffset
	summary.Key = header.key

	return summary, nil
}

// ListNames loads the archive and returns entry names in lexicographic order.
func ListNames(path string) ([]string, error) {
	a, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = a.Close() }()

	names := make([]string, 0, a.Len())
	a.entries.Scan(func(entry *Entry) bool {
		names = append(names, entry.Name)
		return true
	})

	return names, nil
}
