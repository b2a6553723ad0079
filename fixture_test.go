// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// testFile is one fixture payload; prefixLen leading bytes are stored inline
// in the index instead of the payload region.
type testFile struct {
	data      []byte
	prefixLen int
}

// testFiles converts plain payload maps to fixture form without prefixes.
func testFiles(files map[string][]byte) map[string]testFile {
	out := make(map[string]testFile, len(files))
	for name, data := range files {
		out[name] = testFile{data: data}
	}

	return out
}

// writeTestArchive hand-assembles a syntactically valid archive on disk and
// returns its path. The index pickle is built by the test helpers below,
// independent of the package emitter. Extents are masked with the key the
// codec will derive for the given version.
func writeTestArchive(t *testing.T, dir string, version Version, key uint32, files map[string]testFile) string {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := make([]byte, headerReserve)

	type record struct {
		name   string
		offset uint64
		length uint64
		prefix []byte
	}

	records := make([]record, 0, len(names))
	for _, name := range names {
		file := files[name]
		if file.prefixLen > len(file.data) {
			t.Fatalf("fixture %s: prefixLen %d > payload %d", name, file.prefixLen, len(file.data))
		}

		records = append(records, record{
			name:   name,
			offset: uint64(len(buf)),
			length: uint64(len(file.data)),
			prefix: file.data[:file.prefixLen],
		})
		buf = append(buf, file.data[file.prefixLen:]...)
	}

	indexOffset := uint64(len(buf))

	var pickle bytes.Buffer
	pickle.Write([]byte{0x80, 2, '}'})
	for _, rec := range records {
		writeFixtureUnicode(&pickle, rec.name)
		pickle.WriteByte(']')
		writeFixtureInt(&pickle, rec.offset^uint64(key))
		writeFixtureInt(&pickle, rec.length^uint64(key))
		writeFixtureBinstring(&pickle, rec.prefix)
		pickle.Write([]byte{0x87, 'a', 's'})
	}
	pickle.WriteByte('.')

	compressed, err := compressIndex(pickle.Bytes(), DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("compress fixture index: %v", err)
	}
	buf = append(buf, compressed...)

	header := fixtureHeaderLine(version, indexOffset, key)
	if len(header) > headerReserve {
		t.Fatalf("fixture header line %d bytes exceeds reserve", len(header))
	}
	copy(buf, header)

	path := filepath.Join(dir, "fixture.rpa")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write fixture archive: %v", err)
	}

	return path
}

// fixtureHeaderLine renders the header line for one version variant.
// The 3.2 form carries a skipped token before the single key fragment.
func fixtureHeaderLine(version Version, indexOffset uint64, key uint32) string {
	switch version {
	case Version32:
		return fmt.Sprintf("RPA-3.2 %016x 00000000 %08x\n", indexOffset, key)
	case Version30:
		return fmt.Sprintf("RPA-3.0 %016x %08x\n", indexOffset, key)
	default:
		return fmt.Sprintf("RPA-2.0 %016x\n", indexOffset)
	}
}

// writeFixtureUnicode emits BINUNICODE.
func writeFixtureUnicode(buf *bytes.Buffer, s string) {
	buf.WriteByte('X')
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}

// writeFixtureBinstring emits SHORT_BINSTRING.
func writeFixtureBinstring(buf *bytes.Buffer, b []byte) {
	buf.WriteByte('U')
	buf.WriteByte(byte(len(b)))
	buf.Write(b)
}

// writeFixtureInt emits BININT for small values and LONG1 otherwise.
func writeFixtureInt(buf *bytes.Buffer, v uint64) {
	if v <= 0x7fffffff {
		buf.WriteByte('J')
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(v))
		buf.Write(n[:])
		return
	}

	var scratch [9]byte
	n := 0
	for rest := v; rest != 0; rest >>= 8 {
		scratch[n] = byte(rest)
		n++
	}
	if scratch[n-1]&0x80 != 0 {
		scratch[n] = 0
		n++
	}

	buf.WriteByte(0x8a)
	buf.WriteByte(byte(n))
	buf.Write(scratch[:n])
}

// writeRawArchive writes an archive with an arbitrary decompressed index
// block, used for malformed-index and recovery fixtures.
func writeRawArchive(t *testing.T, dir string, version Version, key uint32, payload []byte, rawIndex []byte) string {
	t.Helper()

	buf := make([]byte, headerReserve)
	buf = append(buf, payload...)

	indexOffset := uint64(len(buf))
	compressed, err := compressIndex(rawIndex, DefaultCompressionLevel)
	if err != nil {
		t.Fatalf("compress raw index: %v", err)
	}
	buf = append(buf, compressed...)

	copy(buf, fixtureHeaderLine(version, indexOffset, key))

	path := filepath.Join(dir, "raw.rpa")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write raw archive: %v", err)
	}

	return path
}

// mustOpen opens a fixture archive and registers cleanup.
func mustOpen(t *testing.T, path string) *Archive {
	t.Helper()

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	return a
}
