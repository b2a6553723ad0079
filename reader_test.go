// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestOpenLoadsEntries(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"script.rpyc":     bytes.Repeat([]byte{0xAB}, 64),
		"images/bg.png":   []byte("\x89PNG fake image payload"),
		"audio/theme.ogg": []byte("OggS fake audio payload"),
	}

	path := writeTestArchive(t, t.TempDir(), Version32, 0x0EADBEEF, testFiles(files))
	a := mustOpen(t, path)

	if a.Version() != Version32 {
		t.Errorf("version = %q, want %q", a.Version(), Version32)
	}
	if a.Key() != 0x0EADBEEF {
		t.Errorf("key = %#08x, want 0x0EADBEEF", a.Key())
	}
	if a.Recovered() {
		t.Error("Recovered() = true for a structured index")
	}
	if a.Len() != len(files) {
		t.Fatalf("Len() = %d, want %d", a.Len(), len(files))
	}

	var wantNames []string
	for name := range files {
		wantNames = append(wantNames, name)
	}
	sort.Strings(wantNames)

	entries := a.Entries()
	for i, entry := range entries {
		if entry.Name != wantNames[i] {
			t.Errorf("entry %d name = %q, want %q", i, entry.Name, wantNames[i])
		}
	}

	for name, want := range files {
		got, err := a.Read(name)
		if err != nil {
			t.Fatalf("Read(%s): %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Read(%s) = %q, want %q", name, got, want)
		}
	}
}

// Payload bytes held in the index prefix must be reassembled in front of the
// on-disk remainder.
func TestReadPrefixReassembly(t *testing.T) {
	t.Parallel()

	payload := []byte("\x89PNG\r\n\x1a\nrest of the image data")
	files := map[string]testFile{
		"images/logo.png": {data: payload, prefixLen: 8},
	}

	path := writeTestArchive(t, t.TempDir(), Version30, 0x12345678, files)
	a := mustOpen(t, path)

	got, err := a.Read("images/logo.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Read = %q, want %q", got, payload)
	}

	entries := a.Entries()
	if len(entries) != 1 {
		t.Fatalf("Len = %d", len(entries))
	}
	if !bytes.Equal(entries[0].Prefix, payload[:8]) {
		t.Errorf("prefix = %q, want %q", entries[0].Prefix, payload[:8])
	}
	if entries[0].Length != uint64(len(payload)) {
		t.Errorf("length = %d, want %d", entries[0].Length, len(payload))
	}
}

func TestReadVersion20(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{"old/script.rpyc": []byte("legacy payload")}

	// Pre-3.0 archives carry no key fragments; extents are coded against
	// the fixed default key.
	path := writeTestArchive(t, t.TempDir(), Version20, defaultKey, testFiles(files))
	a := mustOpen(t, path)

	if a.Version() != Version20 {
		t.Errorf("version = %q, want %q", a.Version(), Version20)
	}

	got, err := a.Read("old/script.rpyc")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, files["old/script.rpyc"]) {
		t.Errorf("Read = %q", got)
	}
}

func TestReadMissingEntry(t *testing.T) {
	t.Parallel()

	path := writeTestArchive(t, t.TempDir(), Version30, 1,
		testFiles(map[string][]byte{"a.png": []byte("x")}))
	a := mustOpen(t, path)

	if _, err := a.Read("nope.png"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("Read error = %v, want %v", err, ErrEntryNotFound)
	}
}

func TestReadAfterClose(t *testing.T) {
	t.Parallel()

	path := writeTestArchive(t, t.TempDir(), Version30, 1,
		testFiles(map[string][]byte{"a.png": []byte("x")}))
	a := mustOpen(t, path)

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := a.Read("a.png"); !errors.Is(err, ErrClosed) {
		t.Errorf("Read error = %v, want %v", err, ErrClosed)
	}
}

// A structured index that fails to unpickle must degrade to the heuristic
// scan instead of failing the load.
func TestOpenHeuristicFallback(t *testing.T) {
	t.Parallel()

	const key uint32 = 0xDEADBEEF

	payload := bytes.Repeat([]byte{0xCD}, 0x40)
	rawIndex := recoverBuffer("images/bg.png", uint32(headerReserve), uint32(len(payload)), key)

	path := writeRawArchive(t, t.TempDir(), Version30, key, payload, rawIndex)
	a := mustOpen(t, path)

	if !a.Recovered() {
		t.Fatal("Recovered() = false, want true")
	}
	if a.Len() != 1 {
		t.Fatalf("Len = %d, want 1", a.Len())
	}

	got, err := a.Read("images/bg.png")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("recovered payload mismatch: %d bytes", len(got))
	}
}

// Recovery over a buffer with no filename tokens loads an empty archive.
func TestOpenHeuristicFallbackEmpty(t *testing.T) {
	t.Parallel()

	path := writeRawArchive(t, t.TempDir(), Version30, 0, nil, make([]byte, 256))
	a := mustOpen(t, path)

	if !a.Recovered() {
		t.Fatal("Recovered() = false, want true")
	}
	if a.Len() != 0 {
		t.Errorf("Len = %d, want 0", a.Len())
	}
}

func TestOpenBadIndexBlock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("not zlib", func(t *testing.T) {
		t.Parallel()

		buf := make([]byte, headerReserve)
		copy(buf, fixtureHeaderLine(Version30, uint64(headerReserve), 0))
		buf = append(buf, []byte("this is not a zlib stream")...)

		path := filepath.Join(dir, "badzlib.rpa")
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := Open(path); !errors.Is(err, ErrDecompression) {
			t.Errorf("Open error = %v, want %v", err, ErrDecompression)
		}
	})

	t.Run("offset beyond file", func(t *testing.T) {
		t.Parallel()

		buf := make([]byte, headerReserve)
		copy(buf, fixtureHeaderLine(Version30, 1<<32, 0))

		path := filepath.Join(dir, "badoffset.rpa")
		if err := os.WriteFile(path, buf, 0o644); err != nil {
			t.Fatal(err)
		}

		if _, err := Open(path); !errors.Is(err, ErrDecompression) {
			t.Errorf("Open error = %v, want %v", err, ErrDecompression)
		}
	})
}

// Extent validation logs and retains bad entries; the failure surfaces on Read.
func TestOpenRetainsEntryWithBadExtent(t *testing.T) {
	t.Parallel()

	var pickle bytes.Buffer
	pickle.Write([]byte{0x80, 2, '}'})
	writeFixtureUnicode(&pickle, "ghost.png")
	pickle.WriteByte(']')
	writeFixtureInt(&pickle, uint64(headerReserve))
	writeFixtureInt(&pickle, 1<<20) // far past end of file
	writeFixtureBinstring(&pickle, nil)
	pickle.Write([]byte{0x87, 'a', 's', '.'})

	buf := make([]byte, headerReserve)
	compressed, err := compressIndex(pickle.Bytes(), DefaultCompressionLevel)
	if err != nil {
		t.Fatal(err)
	}
	copy(buf, fixtureHeaderLine(Version30, uint64(headerReserve), 0))
	buf = append(buf, compressed...)

	path := filepath.Join(t.TempDir(), "ghost.rpa")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}

	a := mustOpen(t, path)
	if a.Len() != 1 {
		t.Fatalf("Len = %d, want 1", a.Len())
	}

	if _, err := a.Read("ghost.png"); !errors.Is(err, ErrRead) {
		t.Errorf("Read error = %v, want %v", err, ErrRead)
	}
}

func TestListNames(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"b.png": []byte("b"),
		"a.png": []byte("a"),
		"c.ogg": []byte("c"),
	}

	path := writeTestArchive(t, t.TempDir(), Version30, 7, testFiles(files))

	names, err := ListNames(path)
	if err != nil {
		t.Fatalf("ListNames: %v", err)
	}

	want := []string{"a.png", "b.png", "c.ogg"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}
