// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import (
	"errors"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"images/bg.png", "images/bg.png"},
		{`images\bg.png`, "images/bg.png"},
		{"./images/bg.png", "images/bg.png"},
		{"/images/bg.png", "images/bg.png"},
		{"images//bg.png", "images/bg.png"},
		{"images/./bg.png", "images/bg.png"},
		{"images/../bg.png", "bg.png"},
		{"../bg.png", "bg.png"},
		{"  images/bg.png  ", "images/bg.png"},
		{"", ""},
		{".", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeExtractEntryPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "images/bg.png", "images/bg.png", false},
		{"backslash form", `images\bg.png`, "images/bg.png", false},
		{"dot segments", "a/./b.png", "a/b.png", false},
		{"empty segments", "a//b.png", "a/b.png", false},
		{"empty", "", "", true},
		{"nul byte", "a\x00b.png", "", true},
		{"absolute slash", "/etc/passwd", "", true},
		{"absolute backslash", `\windows\system32`, "", true},
		{"traversal", "../secret.png", "", true},
		{"inner traversal", "a/../../b.png", "", true},
		{"drive prefix", "C:/game/bg.png", "", true},
		{"only dots", "./.", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := normalizeExtractEntryPath(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidExtractPath) {
					t.Fatalf("error = %v, want %v", err, ErrInvalidExtractPath)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeExtractEntryPath(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("normalizeExtractEntryPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
