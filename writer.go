// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// saveWriteBufferSize is buffered writer size for payload emission.
const saveWriteBufferSize = 1 << 20

// savedEntry pairs one surviving store entry with its fresh extent.
type savedEntry struct {
	entry  *Entry
	offset uint64
	length uint64
}

// Save rebuilds the archive at path from the entry store and the original
// backing file.
//
// Surviving entries are written in lexicographic name order; deletion-marked
// entries are dropped from the output. The original file is fully buffered
// first, so path may equal the backing path. Output is written to a temp file
// in the destination directory and renamed into place on success, leaving no
// claimed-valid partial file behind on failure.
//
// Output style follows the source version: 3.x sources are written with an
// "RPA-3.0" header and key-masked index values, 2.0 sources with an "RPA-2.0"
// header and raw values. A 3.2 source deliberately round-trips as 3.0.
func (a *Archive) Save(ctx context.Context, path string) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if a.path == "" {
		return ErrNoBackingFile
	}

	if a.entries.Len() == 0 {
		return ErrNoEntries
	}

	original, err := os.ReadFile(a.path)
	if err != nil {
		return fmt.Errorf("read original archive: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}

	saved, err := a.writeArchive(ctx, tmp, original)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("sync archive: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close archive: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("move archive into place: %w", err)
	}

	if samePath(path, a.path) {
		a.adoptSavedState(saved)
	}

	return nil
}

// writeArchive emits payload region, compressed index, and header line.
func (a *Archive) writeArchive(ctx context.Context, out *os.File, original []byte) ([]savedEntry, error) {
	w := bufio.NewWriterSize(out, saveWriteBufferSize)

	// Reserved header region; the line is written over it at the end.
	if _, err := w.Write(make([]byte, headerReserve)); err != nil {
		return nil, fmt.Errorf("reserve header region: %w", err)
	}

	saved := make([]savedEntry, 0, a.entries.Len())
	cursor := uint64(headerReserve)

	var entryErr error
	a.entries.Scan(func(entry *Entry) bool {
		if err := ctx.Err(); err != nil {
			entryErr = err
			return false
		}

		if entry.Deleted {
			return true
		}

		payload, err := resolveSavePayload(entry, original)
		if err != nil {
			entryErr = err
			return false
		}

		if _, err := w.Write(payload); err != nil {
			entryErr = fmt.Errorf("write entry %s: %w", entry.Name, err)
			return false
		}

		saved = append(saved, savedEntry{
			entry:  entry,
			offset: cursor,
			length: uint64(len(payload)),
		})
		cursor += uint64(len(payload))

		return true
	})
	if entryErr != nil {
		return nil, entryErr
	}

	compressed, err := compressIndex(a.encodeSavedIndex(saved), a.opts.CompressionLevel)
	if err != nil {
		return nil, err
	}

	if _, err := w.Write(compressed); err != nil {
		return nil, fmt.Errorf("write index block: %w", err)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("flush archive: %w", err)
	}

	if _, err := out.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to header: %w", err)
	}

	if a.version.Obfuscated() {
		_, err = fmt.Fprintf(out, "RPA-3.0 %016x %08x\n", cursor, a.key)
	} else {
		_, err = fmt.Fprintf(out, "RPA-2.0 %016x\n", cursor)
	}
	if err != nil {
		return nil, fmt.Errorf("write header line: %w", err)
	}

	return saved, nil
}

// encodeSavedIndex builds the fresh pickled index for written entries,
// masking extents for obfuscated output styles.
func (a *Archive) encodeSavedIndex(saved []savedEntry) []byte {
	records := make([]indexRecord, 0, len(saved))
	for _, item := range saved {
		offset := item.offset
		length := item.length
		if a.version.Obfuscated() {
			offset = maskValue(offset, a.key)
			length = maskValue(length, a.key)
		}

		records = append(records, indexRecord{
			name:   item.entry.Name,
			offset: offset,
			length: length,
		})
	}

	return encodeIndex(records)
}

// resolveSavePayload picks resident bytes or slices the original file.
// A rebuild can never invent bytes for an unmodified entry it cannot locate.
func resolveSavePayload(entry *Entry, original []byte) ([]byte, error) {
	if entry.Resident() {
		return entry.Data, nil
	}

	end := entry.Offset + entry.Length
	if end < entry.Offset || end > uint64(len(original)) {
		return nil, fmt.Errorf("%w: %s extent [%d, %d) in %d-byte original",
			ErrSourceDataMissing, entry.Name, entry.Offset, end, len(original))
	}

	return original[entry.Offset:end], nil
}

// adoptSavedState refreshes store extents after an in-place save: deletion-
// marked entries leave the store, surviving ones point at their new extents
// with a drained prefix, and edit flags reset.
func (a *Archive) adoptSavedState(saved []savedEntry) {
	fresh := newEntryStore()
	for _, item := range saved {
		entry := item.entry
		entry.Offset = item.offset
		entry.Length = item.length
		entry.Prefix = nil
		entry.Data = nil
		entry.Modified = false
		fresh.Set(entry)
	}

	a.entries = fresh
	a.modified = false
}

// samePath reports whether two paths name the same file location.
func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}

	return absA == absB
}
