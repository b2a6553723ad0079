// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"fmt"
	"io"
	"os"
)

// ensureOpen guards operations against nil or closed sessions.
func (a *Archive) ensureOpen() error {
	if a == nil || a.closed {
		return ErrClosed
	}

	return nil
}

// Read returns the current payload bytes for the named entry.
//
// Resident payloads are returned as a copy without touching the backing file.
// On-disk entries are assembled as prefix ++ read(length - len(prefix)):
// the stored prefix is never re-read from disk. No caching is performed.
func (a *Archive) Read(name string) ([]byte, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}

	entry, ok := a.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	return a.readEntry(entry)
}

// readEntry resolves payload bytes for an already-looked-up entry.
func (a *Archive) readEntry(entry *Entry) ([]byte, error) {
	if entry.Resident() {
		out := make([]byte, len(entry.Data))
		copy(out, entry.Data)
		return out, nil
	}

	if a.path == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoBackingFile, entry.Name)
	}

	if uint64(len(entry.Prefix)) > entry.Length {
		return nil, fmt.Errorf("%w: %s: prefix %d longer than entry %d",
			ErrRead, entry.Name, len(entry.Prefix), entry.Length)
	}

	f, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, entry.Name, err)
	}
	defer func() { _ = f.Close() }()

	out := make([]byte, entry.Length)
	copy(out, entry.Prefix)

	remaining := out[len(entry.Prefix):]
	if len(remaining) == 0 {
		return out, nil
	}

	if _, err := f.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, entry.Name, err)
	}

	if _, err := io.ReadFull(f, remaining); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRead, entry.Name, err)
	}

	return out, nil
}
