package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"DocumentClassifier/internal/config"
	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/infrastructure/fetch"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte(`
database:
  driver: sqlite
llm:
  provider: ollama
  model: llama3
pipeline:
  departments:
    - id: eng
      name: Engineering
    - id: hr
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dir := t.TempDir()
	cfg.Database.DSN = "file:" + filepath.Join(dir, "app.db")
	cfg.Blob.LocalDir = filepath.Join(dir, "blobs")
	return cfg
}

func TestDepartments(t *testing.T) {
	t.Parallel()

	got := Departments([]config.DepartmentConfig{{ID: " eng ", Name: "Engineering"}, {ID: "hr"}, {Name: "nameless"}})
	want := []domain.Department{{ID: "eng", Name: "Engineering"}, {ID: "hr", Name: "hr"}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("unexpected departments %+v", got)
	}
}

func TestApplicationWiring(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	if err := a.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	depts, err := a.store.ListDepartments(ctx)
	if err != nil {
		t.Fatalf("ListDepartments: %v", err)
	}
	if len(depts) != 2 {
		t.Fatalf("expected seeded departments, got %+v", depts)
	}

	swept, err := a.Sweep(ctx)
	if err != nil || swept != 0 {
		t.Fatalf("Sweep: %d, %v", swept, err)
	}

	server := httptest.NewServer(a.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/v1/documents/missing")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Blob.Backend = "ftp"
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected blob backend error")
	}

	cfg = testConfig(t)
	cfg.Database.Driver = "oracle"
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected database driver error")
	}
}

func TestImportDirectory(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	if err := a.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	depts, users, err := a.ImportDirectory(ctx, []byte(`
departments:
  - id: safety
    name: Safety
users:
  - id: alice
    name: Alice
    memberships:
      - department: eng
        roleTitle: Engineering Manager
        roleLevel: Management
  - id: bob
    memberships:
      - department: safety
`))
	if err != nil {
		t.Fatalf("ImportDirectory: %v", err)
	}
	if depts != 1 || users != 2 {
		t.Fatalf("unexpected counts %d departments, %d users", depts, users)
	}

	list, err := a.store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(list) != 2 || list[0].Memberships[0].RoleLevel != domain.LevelManagement {
		t.Fatalf("unexpected users %+v", list)
	}

	if _, _, err := a.ImportDirectory(ctx, []byte("users:\n  - id: carol\n    memberships:\n      - department: eng\n        roleLevel: intern\n")); err == nil {
		t.Fatal("expected unknown role level error")
	}
}

func TestSourcesAreConfinedToBlobStore(t *testing.T) {
	t.Parallel()

	a, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	secret := filepath.Join(t.TempDir(), "secret.doc")
	if err := os.WriteFile(secret, []byte("SERVER-SECRET-42"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	server := httptest.NewServer(a.Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/v1/documents", "application/json",
		strings.NewReader(`{"url":"file://`+filepath.ToSlash(secret)+`","mimeType":"application/msword"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for file url, got %d", resp.StatusCode)
	}

	fetcher := fetch.NewHTTPFetcher(0, 0, fetchOptions(a.cfg, a.blobs)...)
	if _, err := fetcher.Fetch(context.Background(), domain.SourceRef{URL: "file://" + filepath.ToSlash(secret)}); !errors.Is(err, fetch.ErrForbiddenSource) {
		t.Fatalf("expected forbidden source outside the blob dir, got %v", err)
	}

	obj, err := a.blobs.Upload(context.Background(), "archives/a1/memo.docx", []byte("memo"), "application/msword")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if data, err := fetcher.Fetch(context.Background(), domain.SourceRef{URL: obj.URL}); err != nil || string(data) != "memo" {
		t.Fatalf("fetch re-hosted entry: %q, %v", data, err)
	}
}

func TestHostOf(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"localhost:9000":               "localhost",
		"https://minio.internal:9000":  "minio.internal",
		"http://cdn.example.com/files": "cdn.example.com",
		"":                             "",
	}
	for in, want := range tests {
		if got := hostOf(in); got != want {
			t.Fatalf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}
