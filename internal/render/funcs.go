// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package render

import (
	"bytes"
	"database/sql"
	"html/template"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/olegiv/noticeboard/internal/model"
)

var (
	imageExtRe = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|svg)$`)
	pdfExtRe   = regexp.MustCompile(`(?i)\.pdf$`)
)

// Notices are typed as plain text with line breaks, so single newlines are
// kept as <br>. Raw HTML is never passed through goldmark.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough, extension.Table),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// htmlSanitizer strips anything unsafe goldmark output could still carry
// (javascript: links and the like).
var htmlSanitizer = bluemonday.UGCPolicy()

// TemplateFuncs returns the functions available to every template.
func (r *Renderer) TemplateFuncs() template.FuncMap {
	thumb := r.thumbURL
	if thumb == nil {
		thumb = func(p string) string { return p }
	}

	return template.FuncMap{
		"formatDate":     FormatDate,
		"formatDateTime": FormatDateTime,
		"truncate":       Truncate,
		"isImage":        IsImage,
		"isPdf":          IsPDF,
		"thumbURL":       thumb,
		"markdown":       Markdown,
		"categoryLabel":  model.CategoryLabel,
		"formatPrice":    FormatPrice,
		"isAdmin":        model.IsAdmin,
		"hasPrefix":      strings.HasPrefix,
		"fileName": func(p string) string {
			if i := strings.LastIndex(p, "/"); i >= 0 {
				return p[i+1:]
			}
			return p
		},
	}
}

// FormatDate formats t as "Jan 2, 2006" in server local time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006")
}

// FormatDateTime formats t as "Jan 2, 2006 3:04 PM" in server local time.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

// Truncate shortens s to at most length runes, appending "...".
func Truncate(s string, length int) string {
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	return strings.TrimRight(string(runes[:length]), " \n\r\t") + "..."
}

// IsImage reports whether an attachment path looks like an image.
func IsImage(p string) bool {
	return imageExtRe.MatchString(p)
}

// IsPDF reports whether an attachment path looks like a PDF.
func IsPDF(p string) bool {
	return pdfExtRe.MatchString(p)
}

// FormatPrice renders a nullable price with two decimals, or "" when unset.
func FormatPrice(p sql.NullFloat64) string {
	if !p.Valid {
		return ""
	}
	return strconv.FormatFloat(p.Float64, 'f', 2, 64)
}

// Markdown converts notice content to sanitized HTML.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		slog.Warn("markdown conversion failed", "error", err)
		return template.HTML(template.HTMLEscapeString(src)) //nolint:gosec // escaped above
	}
	return template.HTML(htmlSanitizer.SanitizeBytes(buf.Bytes())) //nolint:gosec // sanitized by bluemonday
}
