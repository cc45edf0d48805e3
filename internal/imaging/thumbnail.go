// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging produces preview thumbnails for image attachments.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Thumbnail bounds and JPEG quality.
const (
	ThumbWidth   = 480
	ThumbHeight  = 360
	ThumbQuality = 82

	// ThumbDir is the subdirectory of the uploads dir holding thumbnails.
	ThumbDir = "thumbs"
)

// ErrUnsupportedFormat is returned for data that is not jpeg, png, gif or webp.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Thumbnailer writes downscaled copies of uploaded images.
type Thumbnailer struct {
	uploadDir string
}

// NewThumbnailer creates a Thumbnailer writing into uploadDir/thumbs.
func NewThumbnailer(uploadDir string) *Thumbnailer {
	return &Thumbnailer{uploadDir: uploadDir}
}

// IsThumbnailable reports whether filename has an extension we can decode.
// SVG is displayed inline but never rasterized.
func IsThumbnailable(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	default:
		return false
	}
}

// Create reads the stored upload named storedName and writes its thumbnail
// to thumbs/<storedName>. Images already inside the bounds are still
// re-encoded so EXIF orientation is applied.
func (t *Thumbnailer) Create(storedName string) (string, error) {
	name := filepath.Base(storedName)
	data, err := os.ReadFile(filepath.Join(t.uploadDir, name))
	if err != nil {
		return "", fmt.Errorf("reading upload: %w", err)
	}

	format := detectFormat(data)
	if format == "" {
		return "", ErrUnsupportedFormat
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))
	img = imaging.Fit(img, ThumbWidth, ThumbHeight, imaging.Lanczos)

	encoded, err := encodeImage(img, format, ThumbQuality)
	if err != nil {
		return "", fmt.Errorf("encoding thumbnail: %w", err)
	}

	dir := filepath.Join(t.uploadDir, ThumbDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating thumbs dir: %w", err)
	}
	out := filepath.Join(dir, name)
	if err := os.WriteFile(out, encoded, 0o640); err != nil {
		return "", fmt.Errorf("writing thumbnail: %w", err)
	}
	return out, nil
}

// Exists reports whether a thumbnail was written for storedName.
func (t *Thumbnailer) Exists(storedName string) bool {
	info, err := os.Stat(filepath.Join(t.uploadDir, ThumbDir, filepath.Base(storedName)))
	return err == nil && !info.IsDir()
}

// readExifOrientation returns the EXIF orientation tag, or 1 when absent.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// applyOrientation undoes the camera rotation described by an EXIF
// orientation value (1-8).
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encodeImage keeps png and gif lossless; jpeg and webp thumbnails are JPEG
// since there is no pure Go WebP encoder.
func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// detectFormat sniffs the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// TIFF is rejected outright (CVE-2023-36308 in disintegration/imaging)
	switch {
	case strings.Contains(contentType, "tiff"):
		return ""
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}
