// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package util holds small helpers for upload filenames, paths and nullable
// column values.
package util

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// unsafeFilenameChars matches every character not allowed in a stored name.
var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeFilename reduces an uploaded filename to [A-Za-z0-9_.-]. Accents
// are stripped and other scripts transliterated first, so "Zoë Łódź.pdf"
// becomes "Zoe_Lodz.pdf" rather than a row of underscores.
func SanitizeFilename(name string) string {
	base, err := BaseFilename(name)
	if err != nil {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, base)
	if err != nil {
		stripped = base
	}

	ascii := unidecode.Unidecode(stripped)
	safe := unsafeFilenameChars.ReplaceAllString(ascii, "_")

	if strings.Trim(safe, "_.") == "" {
		return ""
	}
	return safe
}

// StoredFilename returns the on-disk name for an upload:
// <unix-millis>_<sanitized name>. A name that sanitizes to nothing is
// replaced with upload_<uuid> keeping a safe extension when there is one.
func StoredFilename(original string, now time.Time) string {
	safe := SanitizeFilename(original)
	if safe == "" {
		safe = "upload_" + uuid.NewString()
		if ext := SanitizeFilename("x" + extension(original)); len(ext) > 1 {
			safe += ext[1:]
		}
	}
	return fmt.Sprintf("%d_%s", now.UnixMilli(), safe)
}

// UniqueFilename inserts a short random suffix before the extension of a
// stored name: "1700_report.pdf" becomes "1700_report_1a2b3c4d.pdf".
func UniqueFilename(name string) string {
	suffix := "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	ext := extension(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}

func extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 && i < len(name)-1 {
		return name[i:]
	}
	return ""
}
