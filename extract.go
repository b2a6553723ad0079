// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// extractWorkItem stores one selected entry with prepared output relative paths.
type extractWorkItem struct {
	name    string
	relPath string
	relDir  string
}

// Extract writes selected entries to dstDir, preserving archive-relative
// paths. Selection follows opts.Rules; deletion-marked entries are never
// extracted. Extraction is parallelized by Workers; on failure it returns
// the first encountered error.
func (a *Archive) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	matcher, err := newSelectMatcher(opts.Rules, opts.MatcherOptions)
	if err != nil {
		return err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = min(runtime.NumCPU(), DefaultExtractWorkers)
	}

	workItems, err := a.prepareExtractWorkItems(matcher, opts.RawNames)
	if err != nil {
		return err
	}

	if len(workItems) == 0 {
		return nil
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return fmt.Errorf("resolve output dir: %w", err)
	}

	if err := os.MkdirAll(dstRootAbs, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := prepareExtractDirs(dstRootAbs, workItems); err != nil {
		return err
	}

	taskCh := make(chan extractWorkItem, len(workItems))
	errCh := make(chan error, len(workItems))
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Go(func() {
			for task := range taskCh {
				err := a.extractPreparedEntry(ctx, dstRootAbs, task)
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		})
	}

	for _, task := range workItems {
		select {
		case <-ctx.Done():
			close(taskCh)
			wg.Wait()
			return ctx.Err()
		case taskCh <- task:
		}
	}

	close(taskCh)
	wg.Wait()
	close(errCh)

	var first error
	for err := range errCh {
		if err != nil && first == nil {
			first = err
		}
	}

	return first
}

// prepareExtractWorkItems selects surviving entries and prepares relative fs paths.
func (a *Archive) prepareExtractWorkItems(matcher *selectMatcher, rawNames bool) ([]extractWorkItem, error) {
	names := make([]string, 0, a.entries.Len())
	a.entries.Scan(func(entry *Entry) bool {
		if entry.Deleted || !matcher.Match(entry.Name) {
			return true
		}

		names = append(names, entry.Name)
		return true
	})

	workItems := make([]extractWorkItem, 0, len(names))
	used := make(map[string]struct{}, len(names))

	for _, name := range names {
		normalizedPath, err := normalizeExtractEntryPath(name)
		if err != nil {
			return nil, fmt.Errorf("normalize entry path %s: %w", name, err)
		}

		if !rawNames {
			normalizedPath, err = sanitizeRelativePath(normalizedPath)
			if err != nil {
				return nil, fmt.Errorf("sanitize entry path %s: %w", name, err)
			}

			normalizedPath, err = makeExtractPathUnique(normalizedPath, used)
			if err != nil {
				return nil, err
			}
		}

		relPath := filepath.FromSlash(normalizedPath)
		relDir := filepath.Dir(relPath)
		if relDir == "." {
			relDir = ""
		}

		workItems = append(workItems, extractWorkItem{
			name:    name,
			relPath: relPath,
			relDir:  relDir,
		})
	}

	return workItems, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(dstRootAbs string, workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		if task.relDir == "" {
			continue
		}

		dirPath := filepath.Join(dstRootAbs, task.relDir)
		key := strings.ToLower(dirPath)
		if _, exists := seen[key]; exists {
			continue
		}

		seen[key] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return fmt.Errorf("create output directory %s: %w", dirPath, err)
		}
	}

	return nil
}

// extractPreparedEntry writes one prepared work item to destination root.
func (a *Archive) extractPreparedEntry(ctx context.Context, dstRootAbs string, task extractWorkItem) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := a.Read(task.name)
	if err != nil {
		return fmt.Errorf("extract %s: %w", task.name, err)
	}

	outPath := filepath.Join(dstRootAbs, task.relPath)
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", task.name, err)
	}

	return nil
}
