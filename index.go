// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"fmt"
	"math/big"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// skipReason explains why one index dictionary entry was not accepted.
type skipReason uint8

const (
	// skipNone marks an accepted entry.
	skipNone skipReason = iota
	// skipBadName means the dictionary key is not a usable string.
	skipBadName
	// skipValueNotList means the dictionary value is not a list.
	skipValueNotList
	// skipListArity means the value list does not hold exactly one element.
	skipListArity
	// skipNotTuple means the list element is not a tuple.
	skipNotTuple
	// skipTupleArity means the tuple does not hold exactly three items.
	skipTupleArity
	// skipBadOffset means the tuple offset is not an integer.
	skipBadOffset
	// skipBadLength means the tuple length is not an integer.
	skipBadLength
	// skipBadPrefix means the tuple prefix is not a byte string.
	skipBadPrefix
)

// String returns short reason name for logs and tests.
func (r skipReason) String() string {
	switch r {
	case skipNone:
		return "ok"
	case skipBadName:
		return "bad_name"
	case skipValueNotList:
		return "value_not_list"
	case skipListArity:
		return "list_arity"
	case skipNotTuple:
		return "not_tuple"
	case skipTupleArity:
		return "tuple_arity"
	case skipBadOffset:
		return "bad_offset"
	case skipBadLength:
		return "bad_length"
	case skipBadPrefix:
		return "bad_prefix"
	default:
		return "unknown"
	}
}

// decodedEntry is per-dictionary-entry decode outcome: an entry or a skip reason.
type decodedEntry struct {
	entry  *Entry
	name   string
	reason skipReason
}

// decodeIndex unpickles the decompressed index block into entry records.
// Returns ErrMalformedIndex when the root value is not a mapping; per-entry
// shape mismatches are skipped, not fatal.
func decodeIndex(raw []byte, key uint32) ([]*Entry, error) {
	root, err := pickle.Loads(string(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIndex, err)
	}

	dict, ok := root.(*types.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: root is %T, not a mapping", ErrMalformedIndex, root)
	}

	decoded := decodeIndexEntries(dict, key)
	entries := make([]*Entry, 0, len(decoded))
	for _, item := range decoded {
		if item.reason != skipNone {
			logger.Warn().
				Str("name", item.name).
				Str("reason", item.reason.String()).
				Msg("index entry skipped")
			continue
		}

		logger.Debug().
			Str("name", item.entry.Name).
			Uint64("offset", item.entry.Offset).
			Uint64("length", item.entry.Length).
			Msg("index entry decoded")
		entries = append(entries, item.entry)
	}

	return entries, nil
}

// decodeIndexEntries converts every dictionary entry to a variant outcome.
// Pure over the parsed pickle value; no logging, no I/O.
func decodeIndexEntries(dict *types.Dict, key uint32) []decodedEntry {
	out := make([]decodedEntry, 0, dict.Len())

	for _, kv := range *dict {
		name, ok := pickleString(kv.Key)
		if !ok || name == "" {
			out = append(out, decodedEntry{name: fmt.Sprint(kv.Key), reason: skipBadName})
			continue
		}

		item := decodeIndexValue(name, kv.Value, key)
		out = append(out, item)
	}

	return out
}

// decodeIndexValue checks one dictionary value against the
// [(offset, length, prefix)] shape and unmasks accepted extents.
func decodeIndexValue(name string, value any, key uint32) decodedEntry {
	list, ok := value.(*types.List)
	if !ok {
		return decodedEntry{name: name, reason: skipValueNotList}
	}

	if list.Len() != 1 {
		return decodedEntry{name: name, reason: skipListArity}
	}

	tuple, ok := list.Get(0).(*types.Tuple)
	if !ok {
		return decodedEntry{name: name, reason: skipNotTuple}
	}

	if tuple.Len() != 3 {
		return decodedEntry{name: name, reason: skipTupleArity}
	}

	offset, ok := pickleInt(tuple.Get(0))
	if !ok {
		return decodedEntry{name: name, reason: skipBadOffset}
	}

	length, ok := pickleInt(tuple.Get(1))
	if !ok {
		return decodedEntry{name: name, reason: skipBadLength}
	}

	prefix, ok := pickleBytes(tuple.Get(2))
	if !ok {
		return decodedEntry{name: name, reason: skipBadPrefix}
	}

	return decodedEntry{
		name: name,
		entry: &Entry{
			Name:   NormalizePath(name),
			Offset: maskValue(uint64(offset), key),
			Length: maskValue(uint64(length), key),
			Prefix: prefix,
		},
	}
}

// maskValue applies the obfuscation key to one stored value.
// XOR with the zero-extended key is its own inverse.
func maskValue(v uint64, key uint32) uint64 {
	return v ^ uint64(key)
}

// pickleString extracts a filename string from a pickle value.
func pickleString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// pickleInt extracts a signed 64-bit integer from a pickle value.
// Integers arrive as int for BININT opcodes and as *big.Int for LONG opcodes.
func pickleInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case *big.Int:
		if !n.IsInt64() && !n.IsUint64() {
			return 0, false
		}
		if n.IsInt64() {
			return n.Int64(), true
		}
		return int64(n.Uint64()), true
	default:
		return 0, false
	}
}

// pickleBytes extracts a prefix byte string from a pickle value.
// Python 2 era indexes store prefixes as str, newer ones as bytes.
func pickleBytes(v any) ([]byte, bool) {
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	default:
		return nil, false
	}
}
