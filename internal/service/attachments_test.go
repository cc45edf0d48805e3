// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

// multipartRequest builds a POST with the given fields and an optional attachment.
func multipartRequest(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" || content != nil {
		fw, err := mw.CreateFormFile(AttachmentField, filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/market/new", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestAttachmentService(t *testing.T) *AttachmentService {
	t.Helper()
	s := NewAttachmentService(t.TempDir())
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestAttachmentService_Save(t *testing.T) {
	s := newTestAttachmentService(t)
	req := multipartRequest(t, map[string]string{"title": "Bike"}, "Fahrrad Übersicht.pdf", []byte("%PDF-1.4"))

	if err := s.ParseForm(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if req.FormValue("title") != "Bike" {
		t.Errorf("title = %q; want Bike", req.FormValue("title"))
	}

	got, err := s.Save(req)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	want := "/uploads/1700000000000_Fahrrad_Ubersicht.pdf"
	if !got.Valid || got.String != want {
		t.Fatalf("Save() = %+v; want %q", got, want)
	}

	data, err := os.ReadFile(filepath.Join(s.UploadDir(), "1700000000000_Fahrrad_Ubersicht.pdf"))
	if err != nil {
		t.Fatalf("stored file: %v", err)
	}
	if string(data) != "%PDF-1.4" {
		t.Errorf("stored content = %q", data)
	}
	if thumb := s.ThumbURL(got.String); thumb != got.String {
		t.Errorf("ThumbURL for pdf = %q; want original path", thumb)
	}
}

func TestAttachmentService_SameNameSameMillisecond(t *testing.T) {
	s := newTestAttachmentService(t)

	var paths []string
	for _, content := range []string{"first", "second"} {
		req := multipartRequest(t, nil, "timetable.pdf", []byte(content))
		if err := s.ParseForm(httptest.NewRecorder(), req); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		got, err := s.Save(req)
		if err != nil {
			t.Fatalf("Save(%s): %v", content, err)
		}
		paths = append(paths, got.String)
	}

	if paths[0] != "/uploads/1700000000000_timetable.pdf" {
		t.Errorf("first path = %q", paths[0])
	}
	if !regexp.MustCompile(`^/uploads/1700000000000_timetable_[0-9a-f]{8}\.pdf$`).MatchString(paths[1]) {
		t.Errorf("second path = %q; want a suffixed name", paths[1])
	}

	for i, want := range []string{"first", "second"} {
		data, err := os.ReadFile(filepath.Join(s.UploadDir(), strings.TrimPrefix(paths[i], PublicPrefix)))
		if err != nil {
			t.Fatalf("reading %s: %v", paths[i], err)
		}
		if string(data) != want {
			t.Errorf("%s content = %q; want %q", paths[i], data, want)
		}
	}
}

func TestAttachmentService_SaveImageCreatesThumbnail(t *testing.T) {
	s := newTestAttachmentService(t)
	req := multipartRequest(t, nil, "poster.png", pngBytes(t, 900, 300))

	if err := s.ParseForm(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	got, err := s.Save(req)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if thumb := s.ThumbURL(got.String); thumb != "/uploads/thumbs/1700000000000_poster.png" {
		t.Errorf("ThumbURL = %q; want thumbs path", thumb)
	}
}

func TestAttachmentService_NoFile(t *testing.T) {
	s := newTestAttachmentService(t)

	req := multipartRequest(t, map[string]string{"title": "x"}, "", nil)
	if err := s.ParseForm(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	got, err := s.Save(req)
	if err != nil || got.Valid {
		t.Errorf("Save() = %+v, %v; want invalid, nil", got, err)
	}
}

func TestAttachmentService_URLEncodedForm(t *testing.T) {
	s := newTestAttachmentService(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/contacts/new", strings.NewReader("name=Ms+Jones"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := s.ParseForm(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if req.FormValue("name") != "Ms Jones" {
		t.Errorf("name = %q", req.FormValue("name"))
	}
	if got, err := s.Save(req); err != nil || got.Valid {
		t.Errorf("Save() = %+v, %v; want no attachment", got, err)
	}
}

func TestAttachmentService_TooLarge(t *testing.T) {
	s := newTestAttachmentService(t)
	big := bytes.Repeat([]byte("a"), MaxAttachmentSize+10)
	req := multipartRequest(t, map[string]string{"title": "big"}, "big.bin", big)

	if err := s.ParseForm(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	_, err := s.Save(req)
	if !errors.Is(err, ErrAttachmentTooLarge) {
		t.Fatalf("Save() err = %v; want ErrAttachmentTooLarge", err)
	}

	entries, _ := os.ReadDir(s.UploadDir())
	if len(entries) != 0 {
		t.Errorf("uploads dir has %d entries; want 0", len(entries))
	}
}

func TestAttachmentService_RequestBodyTooLarge(t *testing.T) {
	s := newTestAttachmentService(t)
	huge := bytes.Repeat([]byte("a"), maxRequestSize+1024)
	req := multipartRequest(t, nil, "huge.bin", huge)

	err := s.ParseForm(httptest.NewRecorder(), req)
	if !errors.Is(err, ErrAttachmentTooLarge) {
		t.Errorf("ParseForm() err = %v; want ErrAttachmentTooLarge", err)
	}
}

func TestAttachmentService_UnsafeNameFallsBackToUUID(t *testing.T) {
	s := newTestAttachmentService(t)
	req := multipartRequest(t, nil, "...", []byte("x"))

	if err := s.ParseForm(httptest.NewRecorder(), req); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	got, err := s.Save(req)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	pattern := regexp.MustCompile(`^/uploads/1700000000000_upload_[0-9a-f-]{36}$`)
	if !pattern.MatchString(got.String) {
		t.Errorf("Save() = %q; want upload_<uuid> name", got.String)
	}
}
