// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/olegiv/noticeboard/internal/imaging"
	"github.com/olegiv/noticeboard/internal/util"
)

// Upload limits.
const (
	MaxAttachmentSize = 5 << 20
	// maxRequestSize leaves room for the other form fields.
	maxRequestSize = MaxAttachmentSize + 1<<20
	// maxFormMemory is kept in memory; larger parts spill to temp files.
	maxFormMemory = 1 << 20

	// AttachmentField is the multipart field carrying the optional file.
	AttachmentField = "attachment"
	// PublicPrefix is the URL prefix uploads are served under.
	PublicPrefix = "/uploads/"
)

// ErrAttachmentTooLarge is returned when the upload exceeds MaxAttachmentSize.
var ErrAttachmentTooLarge = errors.New("attachment too large")

// AttachmentService stores at most one uploaded file per form submission.
type AttachmentService struct {
	uploadDir string
	thumbs    *imaging.Thumbnailer
	now       func() time.Time
}

// NewAttachmentService creates an AttachmentService writing into uploadDir.
func NewAttachmentService(uploadDir string) *AttachmentService {
	return &AttachmentService{
		uploadDir: uploadDir,
		thumbs:    imaging.NewThumbnailer(uploadDir),
		now:       time.Now,
	}
}

// UploadDir returns the directory attachments are stored in.
func (s *AttachmentService) UploadDir() string {
	return s.uploadDir
}

// ParseForm parses a urlencoded or multipart form body, capping its size.
// An oversized body yields ErrAttachmentTooLarge.
func (s *AttachmentService) ParseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return ErrAttachmentTooLarge
		}
		return fmt.Errorf("parsing form: %w", err)
	}
	return nil
}

// Save stores the request's attachment, if any, and returns its public
// path (/uploads/<name>). No file yields an invalid NullString and no error.
// ParseForm must have been called.
func (s *AttachmentService) Save(r *http.Request) (sql.NullString, error) {
	if r.MultipartForm == nil {
		return sql.NullString{}, nil
	}
	file, header, err := r.FormFile(AttachmentField)
	if errors.Is(err, http.ErrMissingFile) {
		return sql.NullString{}, nil
	}
	if err != nil {
		return sql.NullString{}, fmt.Errorf("reading attachment: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Browsers send an empty part when no file was chosen.
	if header.Filename == "" && header.Size == 0 {
		return sql.NullString{}, nil
	}
	if header.Size > MaxAttachmentSize {
		return sql.NullString{}, ErrAttachmentTooLarge
	}

	name, err := s.store(file, header)
	if err != nil {
		return sql.NullString{}, err
	}

	if imaging.IsThumbnailable(name) {
		if _, err := s.thumbs.Create(name); err != nil {
			slog.Warn("thumbnail generation failed", "file", name, "error", err)
		}
	}

	return util.NullStringFromValue(PublicPrefix + name), nil
}

func (s *AttachmentService) store(file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o750); err != nil {
		return "", fmt.Errorf("creating uploads dir: %w", err)
	}

	name := util.StoredFilename(header.Filename, s.now())
	out, dst, err := s.create(name)
	if errors.Is(err, os.ErrExist) {
		// same name uploaded within the same millisecond
		name = util.UniqueFilename(name)
		out, dst, err = s.create(name)
	}
	if err != nil {
		return "", fmt.Errorf("creating attachment file: %w", err)
	}

	// LimitReader guards against a part larger than its declared size.
	n, err := io.Copy(out, io.LimitReader(file, MaxAttachmentSize+1))
	closeErr := out.Close()
	if err == nil && n > MaxAttachmentSize {
		err = ErrAttachmentTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		if errors.Is(err, ErrAttachmentTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("writing attachment: %w", err)
	}

	return name, nil
}

// create opens a new file for name inside the upload dir, failing with
// os.ErrExist rather than overwriting.
func (s *AttachmentService) create(name string) (*os.File, string, error) {
	dst, err := util.SafeJoinPath(s.uploadDir, name)
	if err != nil {
		return nil, "", err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, "", err
	}
	return out, dst, nil
}

// ThumbURL returns the thumbnail URL for an attachment path when one was
// generated, otherwise the attachment path itself.
func (s *AttachmentService) ThumbURL(attachmentPath string) string {
	if attachmentPath == "" {
		return ""
	}
	name := path.Base(attachmentPath)
	if s.thumbs.Exists(name) {
		return PublicPrefix + imaging.ThumbDir + "/" + name
	}
	return attachmentPath
}
