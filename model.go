// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"time"

	"github.com/woozymasta/pathrules"
)

// Internal format layout and limits.
const (
	// headerProbeSize is how many leading bytes are inspected for version classification.
	headerProbeSize = 32
	// headerReserve is the fixed region reserved for the header line on save (0x34).
	headerReserve = 0x34
	// maxHeaderLine bounds the header line length during parse.
	maxHeaderLine = 4096
	// defaultKey is the obfuscation key assumed for archives older than 3.0.
	defaultKey = 0xDEADBEEF
)

// Default tuning values.
const (
	// DefaultCompressionLevel is zlib level used for the saved index block.
	DefaultCompressionLevel = 6
	// DefaultBackupKeep is the backup ring capacity.
	DefaultBackupKeep = 10
	// DefaultExtractWorkers caps extraction parallelism when Workers is zero.
	DefaultExtractWorkers = 8
)

// Version identifies the RPA header variant of a loaded archive.
type Version string

// Known RPA header variants.
const (
	// Version20 marks legacy archives with a bare "RPA-2" header and no key fragments.
	Version20 Version = "RPA-2.0"
	// Version30 marks archives with one or more key fragments starting at token 2.
	Version30 Version = "RPA-3.0"
	// Version32 marks archives whose key fragments start at token 3.
	Version32 Version = "RPA-3.2"
)

// headerTag returns the literal prefix used to classify this version.
func (v Version) headerTag() string {
	switch v {
	case Version32:
		return "RPA-3.2 "
	case Version30:
		return "RPA-3.0 "
	default:
		return "RPA-2"
	}
}

// Obfuscated reports whether offsets and lengths are masked in saved index records.
func (v Version) Obfuscated() bool {
	return v != Version20
}

// Entry describes one logical file inside the archive session.
//
// A nil Data slice means the payload lives in the backing file at
// [Offset, Offset+Length) with Prefix prepended; a non-nil Data slice is a
// resident payload that replaces the on-disk extent entirely.
type Entry struct {
	// Name is archive-relative, forward-slash separated entry path.
	Name string `json:"name" yaml:"name"`
	// Offset is byte position of the stored payload in the backing file.
	Offset uint64 `json:"offset" yaml:"offset"`
	// Length is stored payload size in bytes, including the prefix.
	Length uint64 `json:"length" yaml:"length"`
	// Prefix is a short byte run stored inline in the index, never re-read from disk.
	Prefix []byte `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Data is resident payload override; nil means the entry is read from disk.
	Data []byte `json:"-" yaml:"-"`
	// Modified reports whether the entry was edited in this session.
	Modified bool `json:"modified,omitempty" yaml:"modified,omitempty"`
	// Deleted marks the entry for removal on next save.
	Deleted bool `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// Resident reports whether the entry payload is held in memory.
func (e *Entry) Resident() bool {
	return e.Data != nil
}

// Size returns the current logical payload size in bytes.
func (e *Entry) Size() uint64 {
	if e.Resident() {
		return uint64(len(e.Data))
	}

	return e.Length
}

// BackupEntry is one captured pre-overwrite payload in the backup ring.
type BackupEntry struct {
	// Timestamp records when the payload was captured.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	// Name is the archive entry name the payload belonged to.
	Name string `json:"name" yaml:"name"`
	// Data is the captured payload bytes.
	Data []byte `json:"-" yaml:"-"`
}

// Options configures archive session behavior.
type Options struct {
	// CompressionLevel is zlib level for the saved index block (1..9, default 6).
	CompressionLevel int `json:"compression_level,omitempty" yaml:"compression_level,omitempty"`
	// BackupKeep is backup ring capacity; default is 10.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
	// DisableAutoBackup turns off payload capture on Add/Replace over existing entries.
	DisableAutoBackup bool `json:"disable_auto_backup,omitempty" yaml:"disable_auto_backup,omitempty"`
	// SkipValidation disables eager per-entry extent validation after load.
	SkipValidation bool `json:"skip_validation,omitempty" yaml:"skip_validation,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// Rules select which entry paths are extracted; nil means all surviving entries.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control selection rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
	// Workers is number of extraction workers (zero means NumCPU capped at 8).
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
	// RawNames disables default path sanitization during extract.
	RawNames bool `json:"raw_names,omitempty" yaml:"raw_names,omitempty"`
}

// ReplaceDirOptions configures batch replacement from a directory tree.
type ReplaceDirOptions struct {
	// Rules filter which relative source paths are considered; nil means all.
	Rules []pathrules.Rule `json:"rules,omitempty" yaml:"rules,omitempty"`
	// MatcherOptions control selection rule matching.
	MatcherOptions pathrules.MatcherOptions `json:"matcher_options,omitzero" yaml:"matcher_options,omitzero"`
}

// Kind is a coarse entry classification by filename extension.
type Kind string

// Entry kinds used by Stats and Filter.
const (
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindAudio  Kind = "audio"
	KindScript Kind = "script"
	KindFont   Kind = "font"
	KindOther  Kind = "other"
)

// KindStat aggregates entries of one kind.
type KindStat struct {
	// HumanBytes is Bytes formatted for display.
	HumanBytes string `json:"human_bytes" yaml:"human_bytes"`
	// Count is number of entries of this kind.
	Count int `json:"count" yaml:"count"`
	// Bytes is total logical payload size of this kind.
	Bytes uint64 `json:"bytes" yaml:"bytes"`
}

// AggregateCounts summarizes the current entry store.
type AggregateCounts struct {
	// ByKind breaks totals down per entry kind.
	ByKind map[Kind]KindStat `json:"by_kind" yaml:"by_kind"`
	// HumanTotalBytes is TotalBytes formatted for display.
	HumanTotalBytes string `json:"human_total_bytes" yaml:"human_total_bytes"`
	// Total is number of entries in the store, including deletion-marked ones.
	Total int `json:"total" yaml:"total"`
	// PendingDeletion is number of entries marked for deletion.
	PendingDeletion int `json:"pending_deletion" yaml:"pending_deletion"`
	// Modified is number of entries edited in this session.
	Modified int `json:"modified" yaml:"modified"`
	// Backups is number of payloads currently held in the backup ring.
	Backups int `json:"backups" yaml:"backups"`
	// ResidentBytes is total size of in-memory payload overrides.
	ResidentBytes uint64 `json:"resident_bytes" yaml:"resident_bytes"`
	// OnDiskBytes is total stored size of entries still read from the backing file.
	OnDiskBytes uint64 `json:"on_disk_bytes" yaml:"on_disk_bytes"`
	// TotalBytes is ResidentBytes + OnDiskBytes.
	TotalBytes uint64 `json:"total_bytes" yaml:"total_bytes"`
}

// FilterOptions selects a subset of entries for listing workflows.
type FilterOptions struct {
	// NameContains keeps entries whose name contains this substring (case-insensitive).
	NameContains string `json:"name_contains,omitempty" yaml:"name_contains,omitempty"`
	// Kinds keeps entries of listed kinds; nil means all kinds.
	Kinds []Kind `json:"kinds,omitempty" yaml:"kinds,omitempty"`
	// IncludeDeleted keeps deletion-marked entries in the result.
	IncludeDeleted bool `json:"include_deleted,omitempty" yaml:"include_deleted,omitempty"`
}

// applyDefaults fills zero-valued session options with defaults.
func (opts *Options) applyDefaults() {
	if opts.CompressionLevel <= 0 || opts.CompressionLevel > 9 {
		opts.CompressionLevel = DefaultCompressionLevel
	}

	if opts.BackupKeep <= 0 {
		opts.BackupKeep = DefaultBackupKeep
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.MatcherOptions == (pathrules.MatcherOptions{}) {
		opts.MatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}

// applyDefaults fills zero-valued replace-dir options with defaults.
func (opts *ReplaceDirOptions) applyDefaults() {
	if opts.MatcherOptions == (pathrules.MatcherOptions{}) {
		opts.MatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionExclude,
		}
	}

	if opts.MatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.MatcherOptions.DefaultAction = pathrules.ActionExclude
	}
}
