package blob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"DocumentClassifier/internal/config"
	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/infrastructure/fetch"
)

type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (o *objectServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		o.objects[r.URL.Path] = body
		o.types[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestMinioStoreUpload(t *testing.T) {
	t.Parallel()

	srv := &objectServer{objects: map[string][]byte{}, types: map[string]string{}}
	server := httptest.NewServer(srv)
	defer server.Close()

	store, err := NewMinioStore(config.BlobConfig{
		Endpoint:      server.URL,
		AccessKey:     "access",
		SecretKey:     "secret",
		Bucket:        "documents",
		Region:        "us-east-1",
		PublicBaseURL: "https://cdn.example.com/documents/",
	})
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}

	if err := store.EnsureBucket(context.Background()); err != nil {
		t.Fatalf("EnsureBucket: %v", err)
	}

	obj, err := store.Upload(context.Background(), "archives/a1/memo.docx", []byte("memo"), "application/msword")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if obj.URL != "https://cdn.example.com/documents/archives/a1/memo.docx" {
		t.Fatalf("unexpected url %s", obj.URL)
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if !strings.Contains(string(srv.objects["/documents/archives/a1/memo.docx"]), "memo") {
		t.Fatalf("object not stored: %v", srv.objects)
	}
	if srv.types["/documents/archives/a1/memo.docx"] != "application/msword" {
		t.Fatalf("unexpected content type %q", srv.types["/documents/archives/a1/memo.docx"])
	}
}

func TestMinioStorePresignsWithoutPublicURL(t *testing.T) {
	t.Parallel()

	store, err := NewMinioStore(config.BlobConfig{
		Endpoint:   "127.0.0.1:9000",
		AccessKey:  "access",
		SecretKey:  "secret",
		Bucket:     "documents",
		Region:     "us-east-1",
		PresignTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewMinioStore: %v", err)
	}

	u, err := store.objectURL(context.Background(), "archives/a1/scan.png")
	if err != nil {
		t.Fatalf("objectURL: %v", err)
	}
	if !strings.Contains(u, "/documents/archives/a1/scan.png") || !strings.Contains(u, "X-Amz-Signature=") {
		t.Fatalf("expected presigned url, got %s", u)
	}
}

func TestNewMinioStoreValidates(t *testing.T) {
	t.Parallel()

	tests := []config.BlobConfig{
		{},
		{Endpoint: "localhost:9000", Bucket: "b"},
		{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"},
	}
	for _, cfg := range tests {
		if _, err := NewMinioStore(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestLocalStoreRoundTripsThroughFetcher(t *testing.T) {
	t.Parallel()

	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	obj, err := store.Upload(context.Background(), "archives/a1/../../notes.docx", []byte("notes"), "application/msword")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(obj.URL, "file://") {
		t.Fatalf("unexpected url %s", obj.URL)
	}
	if _, err := os.Stat(filepath.Join(store.root, "notes.docx")); err != nil {
		t.Fatalf("expected object inside root: %v", err)
	}

	data, err := fetch.NewHTTPFetcher(0, 0, fetch.WithFileRoot(store.Root())).Fetch(context.Background(), domain.SourceRef{URL: obj.URL})
	if err != nil || string(data) != "notes" {
		t.Fatalf("fetch stored object: %q, %v", data, err)
	}

	if _, err := store.Upload(context.Background(), "/", nil, ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
