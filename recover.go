// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"encoding/binary"
	"strings"
	"unicode/utf8"
)

// Heuristic recovery scan parameters. The two-marker, sanity-filtered shape
// is deliberate: recovery stays predictable across corrupt inputs even though
// it can miss entries or accept spurious ones.
const (
	// recoverMinNameLen and recoverMaxNameLen bound accepted filename length.
	recoverMinNameLen = 2
	recoverMaxNameLen = 200
	// recoverMarkerWindow is how far past a filename the first marker is searched.
	recoverMarkerWindow = 100
	// recoverSecondMarkerMin/Max bound the gap between the two integer markers.
	recoverSecondMarkerMin = 5
	recoverSecondMarkerMax = 15
	// recoverSkipAfterMatch advances the cursor past a consumed filename region.
	recoverSkipAfterMatch = 50
	// Extent sanity bounds for accepted (offset, length) pairs.
	recoverMinOffset = 50
	recoverMaxOffset = 2_000_000_000
	recoverMaxLength = 500_000_000
	recoverMaxEnd    = 2_000_000_000
)

// recoverNameExtensions is the filename allow-list for heuristic recovery.
var recoverNameExtensions = []string{
	".png", ".jpg", ".jpeg", ".webp",
	".webm", ".avi", ".mp4", ".mov",
	".ogg", ".wav", ".mp3", ".flac",
	".rpy", ".rpyc",
}

// recoverNameExcluded are printable characters never allowed inside filenames.
const recoverNameExcluded = `"\:*?<>|`

// recoverEntries scans a decompressed index buffer for filename-shaped tokens
// followed by two BININT ('J') markers and rebuilds entries from surviving
// pairs. Pure over the input buffer; used when structured decode fails.
func recoverEntries(data []byte, key uint32) []*Entry {
	entries := make([]*Entry, 0, 64)
	seen := make(map[string]int, 64)

	pos := 0
	for pos < len(data) {
		name, nameEnd, ok := scanRecoverName(data, pos)
		if !ok {
			pos++
			continue
		}

		offset, length, found := scanRecoverExtent(data, nameEnd, key)
		if !found {
			pos = nameEnd
			continue
		}

		entry := &Entry{
			Name:   name,
			Offset: offset,
			Length: length,
		}

		// Later occurrences of the same name win, matching map insertion.
		if idx, dup := seen[name]; dup {
			entries[idx] = entry
		} else {
			seen[name] = len(entries)
			entries = append(entries, entry)
		}

		pos = nameEnd + recoverSkipAfterMatch
	}

	return entries
}

// scanRecoverName finds the next filename-shaped token starting at pos.
// Returns the decoded name and the byte position just past it.
func scanRecoverName(data []byte, pos int) (string, int, bool) {
	for pos < len(data) && !isRecoverNameByte(data[pos]) {
		pos++
	}

	if pos >= len(data) {
		return "", 0, false
	}

	start := pos
	for pos < len(data) && isRecoverNameByte(data[pos]) {
		pos++
	}

	token := data[start:pos]
	if !utf8.Valid(token) {
		return "", 0, false
	}

	name := string(token)
	if !isRecoverableName(name) {
		return "", 0, false
	}

	return name, pos, true
}

// isRecoverNameByte reports whether byte may appear inside a filename token.
func isRecoverNameByte(b byte) bool {
	if b <= 0x20 || b >= 0x7f {
		return false
	}

	return !strings.ContainsRune(recoverNameExcluded, rune(b))
}

// isRecoverableName reports whether token length and extension pass the allow-list.
func isRecoverableName(name string) bool {
	if len(name) < recoverMinNameLen || len(name) > recoverMaxNameLen {
		return false
	}

	for _, ext := range recoverNameExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}

	return false
}

// scanRecoverExtent searches up to recoverMarkerWindow bytes past the filename
// for a 'J' marker pair and returns the unmasked extent when it passes the
// sanity filter.
func scanRecoverExtent(data []byte, start int, key uint32) (uint64, uint64, bool) {
	end := min(start+recoverMarkerWindow, len(data))

	for pos := start; pos < end; pos++ {
		if pos+10 >= len(data) || data[pos] != opBinInt {
			continue
		}

		offset, length, ok := extractExtentAt(data, pos, key)
		if ok {
			return offset, length, true
		}
	}

	return 0, 0, false
}

// extractExtentAt reads the first 4-byte value at a 'J' marker, looks for a
// second marker within the allowed gap, and sanity-checks the unmasked pair.
func extractExtentAt(data []byte, pos int, key uint32) (uint64, uint64, bool) {
	if pos+9 >= len(data) || data[pos] != opBinInt {
		return 0, 0, false
	}

	first := binary.LittleEndian.Uint32(data[pos+1 : pos+5])

	for next := pos + recoverSecondMarkerMin; next < pos+recoverSecondMarkerMax; next++ {
		if next+4 >= len(data) || data[next] != opBinInt {
			continue
		}

		second := binary.LittleEndian.Uint32(data[next+1 : next+5])

		offset := uint64(first ^ key)
		length := uint64(second ^ key)

		if isReasonableExtent(offset, length) {
			return offset, length, true
		}
	}

	return 0, 0, false
}

// isReasonableExtent applies the extent sanity filter for recovered pairs.
func isReasonableExtent(offset, length uint64) bool {
	return offset > recoverMinOffset &&
		offset < recoverMaxOffset &&
		length > 0 &&
		length < recoverMaxLength &&
		offset+length < recoverMaxEnd
}
