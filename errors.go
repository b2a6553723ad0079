// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import "errors"

// Sentinel errors for RPA operations. Use errors.Is in callers.
var (
	// ErrUnsupportedFormat means the file does not start with a known RPA version tag.
	ErrUnsupportedFormat = errors.New("unsupported RPA format")
	// ErrKeyParse means one of the header key fragments is not a valid 32-bit hex word.
	ErrKeyParse = errors.New("malformed header key fragment")
	// ErrDecompression means the index block is not a valid zlib stream.
	ErrDecompression = errors.New("index decompression failed")
	// ErrMalformedIndex means the decompressed index is not a pickled mapping.
	// The loader falls back to heuristic recovery on this error.
	ErrMalformedIndex = errors.New("malformed index")
	// ErrEntryReadFailure means eager validation could not read one entry extent.
	ErrEntryReadFailure = errors.New("entry extent read failed")
	// ErrEntryNotFound means the named entry is not present in the archive.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrNoBackingFile means no archive path is set and the entry has no resident payload.
	ErrNoBackingFile = errors.New("no backing archive file")
	// ErrRead means an I/O failure while reading entry payload from the backing file.
	ErrRead = errors.New("entry read failed")
	// ErrSourceDataMissing means original bytes for an unmodified entry are out of bounds on save.
	ErrSourceDataMissing = errors.New("source data missing in original archive")
	// ErrNoEntries means save was requested on an empty entry store.
	ErrNoEntries = errors.New("no entries to save")
	// ErrNoBackup means no backup payload is recorded for the requested entry.
	ErrNoBackup = errors.New("no backup for entry")
	// ErrClosed means the archive session is already closed.
	ErrClosed = errors.New("archive already closed")
	// ErrInvalidEntryPath means entry name is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrInvalidSelectRules means one or more selection rules are invalid.
	ErrInvalidSelectRules = errors.New("invalid selection rules")
)
