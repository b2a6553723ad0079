// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/rpa

package rpa

import "github.com/rs/zerolog"

// logger is package-level structured logger; nop unless set via SetLogger.
var logger = zerolog.Nop()

// SetLogger installs a structured logger for decode-skip and validation warnings.
func SetLogger(l zerolog.Logger) {
	logger = l
}
