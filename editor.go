// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Add stages a new or replacement payload under name. Existing entries are
// overwritten; their current payload is captured into the backup ring first
// when auto-backup is enabled.
func (a *Archive) Add(name string, data []byte) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	canonical, err := normalizeEntryName(name)
	if err != nil {
		return err
	}

	if existing, ok := a.get(canonical); ok {
		a.captureBackup(existing)
	}

	a.stagePayload(canonical, data)

	return nil
}

// Replace stages a replacement payload for an existing entry and fails with
// ErrEntryNotFound otherwise. A deletion mark on the entry is cleared.
func (a *Archive) Replace(name string, data []byte) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	canonical, err := normalizeEntryName(name)
	if err != nil {
		return err
	}

	existing, ok := a.get(canonical)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, canonical)
	}

	a.captureBackup(existing)
	a.stagePayload(canonical, data)

	return nil
}

// MarkDeleted marks the named entry for removal on next save.
func (a *Archive) MarkDeleted(name string) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	entry, ok := a.get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	entry.Deleted = true
	a.modified = true

	return nil
}

// Unmark clears a pending deletion mark from the named entry.
func (a *Archive) Unmark(name string) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	entry, ok := a.get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	entry.Deleted = false

	return nil
}

// Restore re-stages the most recent backup payload for name as a replace.
// The entry's current payload is captured first, so a restore is undoable.
// The consumed backup is removed from the ring.
func (a *Archive) Restore(name string) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	canonical, err := normalizeEntryName(name)
	if err != nil {
		return err
	}

	idx := -1
	for i := len(a.backups) - 1; i >= 0; i-- {
		if a.backups[i].Name == canonical {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNoBackup, canonical)
	}

	restored := a.backups[idx].Data
	a.backups = append(a.backups[:idx], a.backups[idx+1:]...)

	if existing, ok := a.get(canonical); ok {
		a.captureBackup(existing)
	}

	a.stagePayload(canonical, restored)

	return nil
}

// Backups lists the backup ring newest-first.
func (a *Archive) Backups() []BackupEntry {
	if a == nil {
		return nil
	}

	out := make([]BackupEntry, 0, len(a.backups))
	for i := len(a.backups) - 1; i >= 0; i-- {
		out = append(out, a.backups[i])
	}

	return out
}

// ReplaceFromDir walks dir recursively and stages a replace for every regular
// file whose slash-normalized relative path names an existing, non-deleted
// entry. Returns the number of staged replacements.
func (a *Archive) ReplaceFromDir(dir string, opts ReplaceDirOptions) (int, error) {
	if err := a.ensureOpen(); err != nil {
		return 0, err
	}

	opts.applyDefaults()

	matcher, err := newSelectMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return 0, err
	}

	replaced := 0
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("resolve relative path %s: %w", path, err)
		}

		name := NormalizePath(filepath.ToSlash(rel))
		if name == "" || !matcher.Match(name) {
			return nil
		}

		entry, ok := a.get(name)
		if !ok || entry.Deleted {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read replacement %s: %w", path, err)
		}

		if err := a.Replace(name, data); err != nil {
			return err
		}

		replaced++

		return nil
	})
	if walkErr != nil {
		return replaced, fmt.Errorf("batch replace from %s: %w", dir, walkErr)
	}

	return replaced, nil
}

// stagePayload upserts a resident entry for canonical name.
func (a *Archive) stagePayload(name string, data []byte) {
	a.entries.Set(&Entry{
		Name:     name,
		Length:   uint64(len(data)),
		Data:     data,
		Modified: true,
	})
	a.modified = true
}

// captureBackup snapshots the entry's current payload into the backup ring.
// Unreadable payloads are skipped: a backup must hold the bytes a later
// restore would bring back, and those could not be resolved anyway.
func (a *Archive) captureBackup(entry *Entry) {
	if a.opts.DisableAutoBackup {
		return
	}

	data, err := a.readEntry(entry)
	if err != nil {
		logger.Warn().Err(err).Str("name", entry.Name).Msg("backup capture skipped")
		return
	}

	a.backups = append(a.backups, BackupEntry{
		Name:      entry.Name,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})

	if len(a.backups) > a.opts.BackupKeep {
		a.backups = a.backups[len(a.backups)-a.opts.BackupKeep:]
	}
}
