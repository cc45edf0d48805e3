// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "strings"

// DefaultNoticeCategory is stored when a new notice has no category.
const DefaultNoticeCategory = "announcement"

// HomeNoticeLimit is the number of notices shown on the home page.
const HomeNoticeLimit = 10

// NoticeCategorySuggestions are offered in the notice form. Categories are
// free text, so any other value is accepted too.
var NoticeCategorySuggestions = []string{
	"announcement",
	"event",
	"exam",
	"holiday",
	"sports",
}

// NoticeCategory returns the trimmed category, or fallback when it is blank.
func NoticeCategory(category, fallback string) string {
	if c := strings.TrimSpace(category); c != "" {
		return c
	}
	return fallback
}
