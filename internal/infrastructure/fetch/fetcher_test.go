package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"DocumentClassifier/internal/domain"
)

func TestFetchHTTP(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("policy body"))
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	f := NewHTTPFetcher(time.Second, 0, WithTrustedHosts(u.Hostname()))

	data, err := f.Fetch(context.Background(), domain.SourceRef{URL: server.URL + "/policy.docx"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "policy body" {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := f.Fetch(context.Background(), domain.SourceRef{URL: server.URL + "/missing"}); err == nil {
		t.Fatal("expected status error")
	}
}

func TestFetchRefusesPrivateHosts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("internal"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(time.Second, 0)
	if _, err := f.Fetch(context.Background(), domain.SourceRef{URL: server.URL + "/admin"}); !errors.Is(err, ErrForbiddenSource) {
		t.Fatalf("expected forbidden source, got %v", err)
	}
	if n := hits.Load(); n != 0 {
		t.Fatalf("loopback server was reached %d time(s)", n)
	}

	open := NewHTTPFetcher(time.Second, 0, WithPrivateNetworks())
	if data, err := open.Fetch(context.Background(), domain.SourceRef{URL: server.URL}); err != nil || string(data) != "internal" {
		t.Fatalf("private networks enabled: %q, %v", data, err)
	}
}

func TestFetchEnforcesLimit(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	f := NewHTTPFetcher(time.Second, 16, WithPrivateNetworks())
	if _, err := f.Fetch(context.Background(), domain.SourceRef{URL: server.URL}); err == nil {
		t.Fatal("expected size limit error")
	}
	if _, err := f.Fetch(context.Background(), domain.SourceRef{Data: make([]byte, 17)}); err == nil {
		t.Fatal("expected size limit error for in-memory data")
	}
}

func TestFetchInMemoryAndFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	f := NewHTTPFetcher(0, 0, WithFileRoot(root))

	data, err := f.Fetch(context.Background(), domain.SourceRef{Data: []byte("inline")})
	if err != nil || string(data) != "inline" {
		t.Fatalf("inline fetch: %q, %v", data, err)
	}

	path := filepath.Join(root, "archives", "scan.png")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	data, err = f.Fetch(context.Background(), domain.SourceRef{URL: "file://" + filepath.ToSlash(path)})
	if err != nil || string(data) != "png" {
		t.Fatalf("file fetch: %q, %v", data, err)
	}
}

func TestFetchConfinesFilesToRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := filepath.Join(t.TempDir(), "secret.doc")
	if err := os.WriteFile(outside, []byte("SERVER-SECRET"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	link := filepath.Join(root, "link.doc")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}

	confined := NewHTTPFetcher(0, 0, WithFileRoot(root))
	refs := []string{
		"file://" + filepath.ToSlash(outside),
		"file://" + filepath.ToSlash(filepath.Join(root, "..", filepath.Base(filepath.Dir(outside)), "secret.doc")),
		"file://" + filepath.ToSlash(link),
	}
	for _, ref := range refs {
		if data, err := confined.Fetch(context.Background(), domain.SourceRef{URL: ref}); !errors.Is(err, ErrForbiddenSource) {
			t.Fatalf("%s: expected forbidden source, got %q, %v", ref, data, err)
		}
	}

	noRoot := NewHTTPFetcher(0, 0)
	if _, err := noRoot.Fetch(context.Background(), domain.SourceRef{URL: "file://" + filepath.ToSlash(outside)}); !errors.Is(err, ErrForbiddenSource) {
		t.Fatalf("expected file:// to be refused without a root, got %v", err)
	}
}

func TestFetchRejectsBadReferences(t *testing.T) {
	t.Parallel()

	f := NewHTTPFetcher(0, 0)
	for _, ref := range []domain.SourceRef{{}, {URL: "ftp://host/file"}, {URL: "://bad"}} {
		if _, err := f.Fetch(context.Background(), ref); err == nil {
			t.Fatalf("expected error for %+v", ref)
		}
	}
}
