// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import "strings"

// Filter returns entry snapshots matching opts, in lexicographic name order.
// Deletion-marked entries are dropped unless IncludeDeleted is set.
func (a *Archive) Filter(opts FilterOptions) []*Entry {
	if a == nil || a.entries == nil {
		return nil
	}

	needle := strings.ToLower(opts.NameContains)

	out := make([]*Entry, 0, a.entries.Len())
	a.entries.Scan(func(entry *Entry) bool {
		if entry.Deleted && !opts.IncludeDeleted {
			return true
		}

		if needle != "" && !strings.Contains(strings.ToLower(entry.Name), needle) {
			return true
		}

		if !kindMatches(opts.Kinds, entry.Name) {
			return true
		}

		snapshot := *entry
		out = append(out, &snapshot)

		return true
	})

	return out
}

// kindMatches reports whether entry name classifies into one of wanted kinds.
func kindMatches(wanted []Kind, name string) bool {
	if len(wanted) == 0 {
		return true
	}

	kind := KindOf(name)
	for _, w := range wanted {
		if w == kind {
			return true
		}
	}

	return false
}
