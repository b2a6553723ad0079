// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// kindExtensions maps filename extensions to coarse entry kinds.
var kindExtensions = map[string]Kind{
	".png": KindImage, ".jpg": KindImage, ".jpeg": KindImage,
	".webp": KindImage, ".bmp": KindImage, ".gif": KindImage,
	".webm": KindVideo, ".avi": KindVideo, ".mp4": KindVideo,
	".mov": KindVideo, ".mkv": KindVideo,
	".ogg": KindAudio, ".wav": KindAudio, ".mp3": KindAudio,
	".flac": KindAudio, ".opus": KindAudio,
	".rpy": KindScript, ".rpyc": KindScript,
	".ttf": KindFont, ".otf": KindFont,
}

// KindOf classifies an entry name by its filename extension.
func KindOf(name string) Kind {
	lower := strings.ToLower(name)
	if dot := strings.LastIndexByte(lower, '.'); dot >= 0 {
		if kind, ok := kindExtensions[lower[dot:]]; ok {
			return kind
		}
	}

	return KindOther
}

// Stats summarizes the current entry store: totals, edit state, and a
// per-kind breakdown with humanized sizes for display.
func (a *Archive) Stats() AggregateCounts {
	counts := AggregateCounts{
		ByKind: make(map[Kind]KindStat, 6),
	}

	if a == nil || a.entries == nil {
		counts.HumanTotalBytes = humanize.Bytes(0)
		return counts
	}

	a.entries.Scan(func(entry *Entry) bool {
		counts.Total++
		if entry.Deleted {
			counts.PendingDeletion++
		}
		if entry.Modified {
			counts.Modified++
		}

		size := entry.Size()
		if entry.Resident() {
			counts.ResidentBytes += size
		} else {
			counts.OnDiskBytes += size
		}

		kind := KindOf(entry.Name)
		stat := counts.ByKind[kind]
		stat.Count++
		stat.Bytes += size
		counts.ByKind[kind] = stat

		return true
	})

	counts.Backups = len(a.backups)
	counts.TotalBytes = counts.ResidentBytes + counts.OnDiskBytes
	counts.HumanTotalBytes = humanize.Bytes(counts.TotalBytes)

	for kind, stat := range counts.ByKind {
		stat.HumanBytes = humanize.Bytes(stat.Bytes)
		counts.ByKind[kind] = stat
	}

	return counts
}
