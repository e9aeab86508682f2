// Package format decides which extraction path an uploaded file takes.
package format

import (
	"path/filepath"
	"strings"

	"DocumentClassifier/internal/domain"
)

var imageMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
	"image/bmp":  {},
	"image/webp": {},
	"image/tiff": {},
	"image/heic": {},
}

var imageExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".bmp":  {},
	".webp": {},
	".tif":  {},
	".tiff": {},
	".heic": {},
}

var wordMimeTypes = map[string]struct{}{
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.template": {},
	"application/vnd.ms-word.document.macroenabled.12":                        {},
}

var wordExtensions = map[string]struct{}{
	".doc":  {},
	".docx": {},
	".dotx": {},
	".docm": {},
}

var zipMimeTypes = map[string]struct{}{
	"application/zip":              {},
	"application/x-zip-compressed": {},
	"application/x-zip":            {},
	"multipart/x-zip":              {},
}

// genericMimeTypes carry no usable type information; the extension decides instead.
var genericMimeTypes = map[string]struct{}{
	"":                         {},
	"application/octet-stream": {},
	"binary/octet-stream":      {},
	"application/unknown":      {},
}

// Detect resolves the format of a file from its MIME type and optional name.
func Detect(mimeType, fileName string) domain.Format {
	switch {
	case IsArchive(mimeType, fileName):
		return domain.FormatArchive
	case IsImage(mimeType, fileName):
		return domain.FormatImage
	case IsWord(mimeType, fileName):
		return domain.FormatWord
	default:
		return domain.FormatOther
	}
}

// IsImage reports whether the file should go through OCR.
func IsImage(mimeType, fileName string) bool {
	mt := normalizeMime(mimeType)
	if _, ok := imageMimeTypes[mt]; ok {
		return true
	}
	if strings.HasPrefix(mt, "image/") {
		return true
	}
	if isGeneric(mt) {
		return hasExtension(fileName, imageExtensions)
	}
	return false
}

// IsWord reports whether the file is a word-processing document.
func IsWord(mimeType, fileName string) bool {
	mt := normalizeMime(mimeType)
	if _, ok := wordMimeTypes[mt]; ok {
		return true
	}
	if isGeneric(mt) {
		return hasExtension(fileName, wordExtensions)
	}
	return false
}

// IsArchive reports whether the file is a zip archive, by MIME or by .zip suffix.
func IsArchive(mimeType, fileName string) bool {
	if _, ok := zipMimeTypes[normalizeMime(mimeType)]; ok {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(fileName)), ".zip")
}

// normalizeMime lowercases and drops parameters such as "; charset=utf-8".
func normalizeMime(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}
	return mt
}

func isGeneric(mt string) bool {
	_, ok := genericMimeTypes[mt]
	return ok
}

func hasExtension(fileName string, set map[string]struct{}) bool {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(fileName)))
	_, ok := set[ext]
	return ok
}

// ImageExtensions lists the extensions recognised as images.
func ImageExtensions() []string {
	out := make([]string, 0, len(imageExtensions))
	for ext := range imageExtensions {
		out = append(out, ext)
	}
	return out
}
