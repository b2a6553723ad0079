// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

/*
Package rpa provides load, read, edit, extract, and save operations for
Ren'Py RPA archives. The codec detects the header variant (RPA-2, RPA-3.0,
RPA-3.2), derives the XOR obfuscation key from header fragments, decodes the
zlib-compressed pickled index, and falls back to a heuristic byte scan when
the structured index cannot be decoded.

The session is single-writer: one Archive owns its entry store, file handles
are opened and released per operation, and no internal locks are held.

# Loading and reading

Open an archive and read entry payloads:

	a, err := rpa.Open("game/archive.rpa")
	if err != nil {
	    return err
	}
	defer a.Close()
	for _, e := range a.Entries() {
	    data, _ := a.Read(e.Name)
	    // use data
	}

Header-only identification without decoding the index:

	summary, err := rpa.Probe("game/archive.rpa")
	if err != nil {
	    return err
	}
	_ = summary.Version

Archives with a corrupt structured index still load: entries are rebuilt by a
best-effort filename scan and Recovered() reports true. Recovery can miss
entries and, for pathological inputs, accept spurious ones.

# Editing

Stage payload edits in memory, then save. Overwritten payloads are captured
into a bounded backup ring and can be restored:

	if err := a.Replace("images/bg.png", newPNG); err != nil {
	    return err
	}
	if err := a.MarkDeleted("audio/old.ogg"); err != nil {
	    return err
	}
	if err := a.Restore("images/bg.png"); err != nil {
	    return err
	}

Batch replacement from a directory tree of same-named files:

	n, err := a.ReplaceFromDir("patched/", rpa.ReplaceDirOptions{})

# Saving

Save rebuilds the whole archive from surviving entries in lexicographic
order; deletion-marked entries are dropped. 3.x sources are written with an
RPA-3.0 header and key-masked index values, 2.0 sources with an RPA-2.0
header and raw values:

	if err := a.Save(ctx, "game/archive.rpa"); err != nil {
	    return err
	}

# Extracting

Extract all or rule-selected entries to a directory (parallel workers);
paths are sanitized by default:

	err := a.Extract(ctx, "out/", rpa.ExtractOptions{
	    Rules: []pathrules.Rule{
	        {Action: pathrules.ActionInclude, Pattern: "images/**"},
	    },
	    Workers: 4,
	})
*/
package rpa
