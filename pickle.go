// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Pickle protocol 2 opcodes used by the index emitter.
const (
	opProto          = 0x80
	opEmptyDict      = '}'
	opEmptyList      = ']'
	opBinInt         = 'J'
	opLong1          = 0x8a
	opShortBinstring = 'U'
	opBinUnicode     = 'X'
	opTuple3         = 0x87
	opAppend         = 'a'
	opSetItem        = 's'
	opStop           = '.'
)

// indexRecord is one fresh index mapping entry produced during save.
type indexRecord struct {
	name   string
	offset uint64
	length uint64
}

// encodeIndex serializes index records as a protocol-2 pickle with the same
// grammar the decoder accepts: {name: [(offset, length, b"")]}.
// Records must already carry masked values for obfuscated output styles.
func encodeIndex(records []indexRecord) []byte {
	var buf bytes.Buffer
	buf.Grow(64 * len(records))

	buf.Write([]byte{opProto, 2})
	buf.WriteByte(opEmptyDict)

	for _, rec := range records {
		writePickleUnicode(&buf, rec.name)
		buf.WriteByte(opEmptyList)
		writePickleInt(&buf, rec.offset)
		writePickleInt(&buf, rec.length)
		writePickleShortBinstring(&buf, nil)
		buf.WriteByte(opTuple3)
		buf.WriteByte(opAppend)
		buf.WriteByte(opSetItem)
	}

	buf.WriteByte(opStop)

	return buf.Bytes()
}

// writePickleUnicode emits BINUNICODE with 4-byte length and UTF-8 payload.
func writePickleUnicode(buf *bytes.Buffer, s string) {
	buf.WriteByte(opBinUnicode)
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}

// writePickleShortBinstring emits SHORT_BINSTRING for byte runs up to 255 bytes.
func writePickleShortBinstring(buf *bytes.Buffer, b []byte) {
	buf.WriteByte(opShortBinstring)
	buf.WriteByte(byte(len(b)))
	buf.Write(b)
}

// writePickleInt emits BININT for values fitting signed 32 bits and a
// non-negative LONG1 otherwise. BININT keeps the 'J' + little-endian layout
// the heuristic recovery scanner relies on.
func writePickleInt(buf *bytes.Buffer, v uint64) {
	if v <= math.MaxInt32 {
		buf.WriteByte(opBinInt)
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(v))
		buf.Write(n[:])
		return
	}

	// Minimal little-endian two's-complement encoding with a zero guard
	// byte when the top bit is set, keeping the value positive.
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

	buf.WriteByte(opLong1)
	buf.WriteByte(byte(n))
	buf.Write(scratch[:n])
}
