// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode"
)

const (
	// maxSanitizedSegmentLen limits one path segment to common filesystem-safe length.
	maxSanitizedSegmentLen = 240
	// maxUniqueSuffixTries bounds collision suffix search during extract.
	maxUniqueSuffixTries = 1 << 16
)

// reservedDeviceNames contains case-insensitive reserved Windows/DOS device names.
var reservedDeviceNames = map[string]struct{}{
	"aux":  {},
	"con":  {},
	"nul":  {},
	"prn":  {},
	"com1": {}, "com2": {}, "com3": {}, "com4": {}, "com5": {},
	"com6": {}, "com7": {}, "com8": {}, "com9": {},
	"lpt1": {}, "lpt2": {}, "lpt3": {}, "lpt4": {}, "lpt5": {},
	"lpt6": {}, "lpt7": {}, "lpt8": {}, "lpt9": {},
}

// SanitizePath rewrites one archive path to deterministic filesystem-safe
// slash-separated form, as used by Extract unless RawNames is set.
func SanitizePath(pathValue string) (string, error) {
	normalizedPath, err := normalizeExtractEntryPath(pathValue)
	if err != nil {
		return "", err
	}

	return sanitizeRelativePath(normalizedPath)
}

// sanitizeRelativePath rewrites every segment of an already-normalized
// relative path to a filesystem-safe form.
func sanitizeRelativePath(relativePath string) (string, error) {
	segments := strings.Split(relativePath, "/")
	out := make([]string, 0, len(segments))

	for _, segment := range segments {
		sanitized, err := sanitizePathSegment(segment)
		if err != nil {
			return "", err
		}

		if sanitized == "" {
			continue
		}

		out = append(out, sanitized)
	}

	if len(out) == 0 {
		return "", ErrInvalidExtractPath
	}

	return strings.Join(out, "/"), nil
}

// sanitizePathSegment rewrites one path segment: control and non-printable
// runes become underscores, trailing dots and spaces are trimmed, reserved
// device names and over-long segments are rewritten deterministically.
func sanitizePathSegment(segment string) (string, error) {
	var b strings.Builder
	b.Grow(len(segment))

	for _, r := range segment {
		if r == unicode.ReplacementChar || unicode.IsControl(r) || !unicode.IsPrint(r) {
			b.WriteByte('_')
			continue
		}

		b.WriteRune(r)
	}

	cleaned := strings.TrimRight(b.String(), ". ")
	if cleaned == "" {
		return "", nil
	}

	if isReservedDeviceName(cleaned) {
		cleaned = "_" + cleaned
	}

	if len(cleaned) > maxSanitizedSegmentLen {
		cleaned = shortenSegmentDeterministic(cleaned, maxSanitizedSegmentLen)
	}

	return cleaned, nil
}

// isReservedDeviceName reports whether name (without extension) is a reserved device name.
func isReservedDeviceName(name string) bool {
	base := strings.ToLower(name)
	if dot := strings.IndexByte(base, '.'); dot >= 0 {
		base = base[:dot]
	}

	_, reserved := reservedDeviceNames[base]
	return reserved
}

// shortenSegmentDeterministic truncates value and appends a short content hash
// so distinct long names stay distinct.
func shortenSegmentDeterministic(value string, maxLen int) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(value))
	suffix := "~" + strconv.FormatUint(uint64(h.Sum32()), 16)

	keep := maxLen - len(suffix)
	if keep < 1 {
		keep = 1
	}

	return value[:keep] + suffix
}

// makeExtractPathUnique resolves case-insensitive collisions between sanitized paths.
func makeExtractPathUnique(pathValue string, used map[string]struct{}) (string, error) {
	key := strings.ToLower(pathValue)
	if _, exists := used[key]; !exists {
		used[key] = struct{}{}
		return pathValue, nil
	}

	ext := ""
	stem := pathValue
	if dot := strings.LastIndexByte(pathValue, '.'); dot > strings.LastIndexByte(pathValue, '/') {
		stem, ext = pathValue[:dot], pathValue[dot:]
	}

	for n := 1; n < maxUniqueSuffixTries; n++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, n, ext)
		key := strings.ToLower(candidate)
		if _, exists := used[key]; exists {
			continue
		}

		used[key] = struct{}{}
		return candidate, nil
	}

	return "", fmt.Errorf("%w: cannot uniquify %q", ErrInvalidExtractPath, pathValue)
}
