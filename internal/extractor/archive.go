package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

// DefaultMaxEntryBytes caps how much a single archive entry may expand to.
const DefaultMaxEntryBytes = 100 * 1024 * 1024

// reservedPrefixes mark platform metadata entries that never become documents.
var reservedPrefixes = []string{"__MACOSX/", "__macosx/"}

var reservedBasePrefixes = []string{"._", ".DS_Store"}

// Workspace is scoped temporary storage for one archive.
type Workspace interface {
	Dir() string
	Release() error
}

// TempWorkspace is a Workspace backed by a temporary directory.
type TempWorkspace struct {
	dir string
}

// NewTempWorkspace creates a fresh temporary directory.
func NewTempWorkspace() (Workspace, error) {
	dir, err := os.MkdirTemp("", "document-archive-*")
	if err != nil {
		return nil, fmt.Errorf("create archive workspace: %w", err)
	}
	return &TempWorkspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *TempWorkspace) Dir() string { return w.dir }

// Release removes the directory and everything in it.
func (w *TempWorkspace) Release() error {
	return os.RemoveAll(w.dir)
}

// EntryFailure records an archive entry that could not become an ingestion unit.
type EntryFailure struct {
	FileName string
	Err      error
}

// ArchiveExpander expands zip uploads into per-entry ingestion units.
type ArchiveExpander struct {
	fetcher       ports.Fetcher
	blobs         ports.BlobStore
	maxEntryBytes int64
}

// NewArchiveExpander wires the downloader and the blob store entries are re-hosted on.
func NewArchiveExpander(fetcher ports.Fetcher, blobs ports.BlobStore, maxEntryBytes int64) *ArchiveExpander {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	return &ArchiveExpander{fetcher: fetcher, blobs: blobs, maxEntryBytes: maxEntryBytes}
}

// Expand writes every retained entry into the workspace, re-uploads it and
// returns one unit per entry. Entry-level problems are reported as failures;
// only an unreadable archive is an error.
func (a *ArchiveExpander) Expand(ctx context.Context, archive domain.IngestionUnit, archiveID string, ws Workspace) ([]domain.IngestionUnit, []EntryFailure, error) {
	if a.fetcher == nil || a.blobs == nil {
		return nil, nil, &domain.ExtractionError{Adapter: "archive", FileName: archive.FileName, Cause: fmt.Errorf("archive adapter is not configured")}
	}

	data, err := a.fetcher.Fetch(ctx, archive.Source)
	if err != nil {
		return nil, nil, &domain.ExtractionError{Adapter: "archive", FileName: archive.FileName, Cause: fmt.Errorf("download: %w", err)}
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, &domain.ExtractionError{Adapter: "archive", FileName: archive.FileName, Cause: fmt.Errorf("open zip: %w", err)}
	}

	var (
		units    []domain.IngestionUnit
		failures []EntryFailure
	)
	for i, f := range reader.File {
		if skipEntry(f) {
			continue
		}
		base := path.Base(f.Name)

		local, err := a.writeEntry(f, filepath.Join(ws.Dir(), fmt.Sprintf("%03d_%s", i, sanitize(base))))
		if err != nil {
			failures = append(failures, EntryFailure{FileName: base, Err: err})
			continue
		}

		content, err := os.ReadFile(local)
		if err != nil {
			failures = append(failures, EntryFailure{FileName: base, Err: fmt.Errorf("read entry: %w", err)})
			continue
		}

		key := fmt.Sprintf("archives/%s/%03d_%s", archiveID, i, sanitize(base))
		stored, err := a.blobs.Upload(ctx, key, content, ResolveContentType(base, content))
		if err != nil {
			failures = append(failures, EntryFailure{FileName: base, Err: fmt.Errorf("upload entry: %w", err)})
			continue
		}

		units = append(units, domain.IngestionUnit{
			Source:     domain.SourceRef{URL: stored.URL},
			MimeType:   stored.ContentType,
			FileName:   base,
			Title:      TitleFromFileName(base),
			UploaderID: archive.UploaderID,
			ParentID:   archiveID,
		})
	}

	return units, failures, nil
}

func (a *ArchiveExpander) writeEntry(f *zip.File, dest string) (string, error) {
	if f.UncompressedSize64 > uint64(a.maxEntryBytes) {
		return "", fmt.Errorf("entry too large: %d bytes (max %d)", f.UncompressedSize64, a.maxEntryBytes)
	}

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create entry file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(rc, a.maxEntryBytes+1))
	closeErr := out.Close()
	if err != nil {
		return "", fmt.Errorf("expand entry: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close entry file: %w", closeErr)
	}
	if n > a.maxEntryBytes {
		return "", fmt.Errorf("entry exceeds %d bytes", a.maxEntryBytes)
	}
	return dest, nil
}

func skipEntry(f *zip.File) bool {
	if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
		return true
	}
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(f.Name, p) {
			return true
		}
	}
	base := path.Base(f.Name)
	for _, p := range reservedBasePrefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	return false
}

// TitleFromFileName strips the extension and turns underscores into spaces.
func TitleFromFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	return strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
}

// officeContentTypes covers extensions missing from minimal system MIME tables.
var officeContentTypes = map[string]string{
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".dotx": "application/vnd.openxmlformats-officedocument.wordprocessingml.template",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
}

// ResolveContentType guesses a MIME type from the extension, then from content.
func ResolveContentType(name string, data []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := officeContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, name)
}
