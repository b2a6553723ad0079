// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/btree"
)

// headerInfo is the parsed first line of an archive.
type headerInfo struct {
	// version is the classified header variant.
	version Version
	// indexOffset is byte offset of the compressed index block.
	indexOffset uint64
	// key is the derived obfuscation key.
	key uint32
}

// Archive is one loaded archive session: parsed header, derived key, and the
// entry store. The session owns the store exclusively; the codec holds no
// internal locks.
type Archive struct {
	// entries is the entry store ordered by name.
	entries *btree.BTreeG[*Entry]
	// path is the backing archive file used for on-disk payload reads.
	path string
	// backups is the bounded ring of captured pre-overwrite payloads.
	backups []BackupEntry
	// opts are session options applied at load time.
	opts Options
	// indexOffset is the header-declared index position of the loaded file.
	indexOffset uint64
	// key is the session obfuscation key.
	key uint32
	// version is the detected header variant.
	version Version
	// modified reports whether any entry was edited since load.
	modified bool
	// recovered reports whether the index came from heuristic recovery.
	recovered bool
	// closed reports whether Close was already called.
	closed bool
}

// Open loads an archive from path with default options.
func Open(path string) (*Archive, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions loads an archive from path using explicit session options.
// When the structured index decode fails, the loader falls back to heuristic
// recovery automatically.
func OpenWithOptions(path string, opts Options) (*Archive, error) {
	opts.applyDefaults()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	header, err := parseHeader(f)
	if err != nil {
		return nil, err
	}

	a := &Archive{
		entries:     newEntryStore(),
		path:        path,
		opts:        opts,
		indexOffset: header.indexOffset,
		key:         header.key,
		version:     header.version,
	}

	entries, recovered, err := loadIndex(f, fi.Size(), header)
	if err != nil {
		return nil, err
	}

	a.recovered = recovered
	for _, entry := range entries {
		a.entries.Set(entry)
	}

	if !opts.SkipValidation {
		validateEntries(f, fi.Size(), a.entries)
	}

	return a, nil
}

// newEntryStore creates the name-ordered entry store.
func newEntryStore() *btree.BTreeG[*Entry] {
	less := func(a, b *Entry) bool {
		return a.Name < b.Name
	}

	return btree.NewBTreeGOptions(less, btree.Options{NoLocks: true})
}

// parseHeader classifies the version from the first 32 bytes, then reads the
// full header line and derives index offset and obfuscation key.
func parseHeader(ra io.ReaderAt) (headerInfo, error) {
	var info headerInfo

	probe := make([]byte, headerProbeSize)
	if _, err := ra.ReadAt(probe, 0); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return info, fmt.Errorf("%w: short header", ErrUnsupportedFormat)
		}

		return info, fmt.Errorf("read header: %w", err)
	}

	switch {
	case bytes.HasPrefix(probe, []byte(Version32.headerTag())):
		info.version = Version32
	case bytes.HasPrefix(probe, []byte(Version30.headerTag())):
		info.version = Version30
	case bytes.HasPrefix(probe, []byte(Version20.headerTag())):
		info.version = Version20
	default:
		return info, fmt.Errorf("%w: header %q", ErrUnsupportedFormat, firstToken(probe))
	}

	line, err := readHeaderLine(ra)
	if err != nil {
		return info, err
	}

	parts := strings.Fields(line)
	if len(parts) < 2 {
		return info, fmt.Errorf("%w: header line has no index offset", ErrUnsupportedFormat)
	}

	info.indexOffset, err = strconv.ParseUint(parts[1], 16, 64)
	if err != nil {
		return info, fmt.Errorf("%w: bad index offset %q", ErrUnsupportedFormat, parts[1])
	}

	info.key, err = deriveKey(info.version, parts)
	if err != nil {
		return info, err
	}

	return info, nil
}

// readHeaderLine reads the first line up to a single line feed byte.
func readHeaderLine(ra io.ReaderAt) (string, error) {
	buf := make([]byte, 0, 64)
	chunk := make([]byte, 64)

	for off := int64(0); len(buf) < maxHeaderLine; off += int64(len(chunk)) {
		n, err := ra.ReadAt(chunk, off)
		if n > 0 {
			if i := bytes.IndexByte(chunk[:n], '\n'); i >= 0 {
				return string(append(buf, chunk[:i]...)), nil
			}

			buf = append(buf, chunk[:n]...)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", fmt.Errorf("%w: unterminated header line", ErrUnsupportedFormat)
			}

			return "", fmt.Errorf("read header line: %w", err)
		}
	}

	return "", fmt.Errorf("%w: header line too long", ErrUnsupportedFormat)
}

// deriveKey folds header key fragments into the session obfuscation key.
// Archives older than 3.0 carry no fragments and use the fixed default key.
// The fragment start token differs by version: 2 for 3.0, 3 for 3.2.
func deriveKey(version Version, parts []string) (uint32, error) {
	if !version.Obfuscated() {
		return defaultKey, nil
	}

	keyStart := 2
	if version == Version32 {
		keyStart = 3
	}

	var key uint32
	if keyStart >= len(parts) {
		return key, nil
	}

	for _, fragment := range parts[keyStart:] {
		sub, err := strconv.ParseUint(fragment, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrKeyParse, fragment)
		}

		key ^= uint32(sub)
	}

	return key, nil
}

// firstToken returns the leading printable run of a header probe for error text.
func firstToken(probe []byte) string {
	end := 0
	for end < len(probe) && probe[end] > 0x20 && probe[end] < 0x7f {
		end++
	}

	return string(probe[:end])
}

// loadIndex reads the compressed index block, decompresses it, and decodes
// entries; a malformed structured index degrades to heuristic recovery.
func loadIndex(ra io.ReaderAt, size int64, header headerInfo) ([]*Entry, bool, error) {
	if header.indexOffset > uint64(size) {
		return nil, false, fmt.Errorf("%w: index offset %#x beyond file size %d",
			ErrDecompression, header.indexOffset, size)
	}

	compressed := make([]byte, size-int64(header.indexOffset))
	if _, err := ra.ReadAt(compressed, int64(header.indexOffset)); err != nil {
		return nil, false, fmt.Errorf("%w: read index block: %v", ErrDecompression, err)
	}

	raw, err := decompressIndex(compressed)
	if err != nil {
		return nil, false, err
	}

	entries, err := decodeIndex(raw, header.key)
	if err == nil {
		return entries, false, nil
	}

	if !errors.Is(err, ErrMalformedIndex) {
		return nil, false, err
	}

	logger.Warn().Err(err).Msg("structured index decode failed, trying heuristic recovery")

	return recoverEntries(raw, header.key), true, nil
}

// validateEntries eagerly reads every on-disk extent once. Failures are
// logged and the entry is retained; the error surfaces again on first access.
func validateEntries(ra io.ReaderAt, size int64, store *btree.BTreeG[*Entry]) {
	store.Scan(func(entry *Entry) bool {
		if entry.Resident() {
			return true
		}

		if err := validateExtent(ra, size, entry); err != nil {
			logger.Warn().
				Err(err).
				Str("name", entry.Name).
				Uint64("offset", entry.Offset).
				Uint64("length", entry.Length).
				Msg("entry extent validation failed, entry retained")
		}

		return true
	})
}

// validateExtent checks one entry extent against file bounds and reads it through.
func validateExtent(ra io.ReaderAt, size int64, entry *Entry) error {
	end := entry.Offset + entry.Length
	if end < entry.Offset || end > uint64(size) {
		return fmt.Errorf("%w: extent [%d, %d) beyond file size %d",
			ErrEntryReadFailure, entry.Offset, end, size)
	}

	sr := io.NewSectionReader(ra, int64(entry.Offset), int64(entry.Length))
	if _, err := io.Copy(io.Discard, sr); err != nil {
		return fmt.Errorf("%w: %v", ErrEntryReadFailure, err)
	}

	return nil
}

// Version returns the detected header variant.
func (a *Archive) Version() Version {
	return a.version
}

// Key returns the derived obfuscation key.
func (a *Archive) Key() uint32 {
	return a.key
}

// Path returns the backing archive file path.
func (a *Archive) Path() string {
	return a.path
}

// Recovered reports whether the index was rebuilt by heuristic recovery.
func (a *Archive) Recovered() bool {
	return a.recovered
}

// Modified reports whether any entry was edited since load.
func (a *Archive) Modified() bool {
	return a.modified
}

// Len returns the number of entries in the store, including deletion-marked ones.
func (a *Archive) Len() int {
	if a == nil || a.entries == nil {
		return 0
	}

	return a.entries.Len()
}

// Entries returns entry snapshots in lexicographic name order.
func (a *Archive) Entries() []*Entry {
	if a == nil || a.entries == nil {
		return nil
	}

	out := make([]*Entry, 0, a.entries.Len())
	a.entries.Scan(func(entry *Entry) bool {
		snapshot := *entry
		out = append(out, &snapshot)
		return true
	})

	return out
}

// Close releases the session. Load state is discarded; file handles are
// per-operation and never held across calls.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}

	if a.closed {
		return nil
	}

	a.closed = true
	a.entries = newEntryStore()
	a.backups = nil
	a.path = ""

	return nil
}

// get resolves one live entry by normalized name.
func (a *Archive) get(name string) (*Entry, bool) {
	return a.entries.Get(&Entry{Name: NormalizePath(name)})
}
