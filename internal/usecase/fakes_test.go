package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"DocumentClassifier/internal/classify"
	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/extractor"
	"DocumentClassifier/internal/normalize"
	"DocumentClassifier/internal/ports"
	"DocumentClassifier/internal/visibility"
)

type memoryStore struct {
	mu          sync.Mutex
	seq         int
	docs        map[string]*domain.Document
	failUpdates int

	// beforeTransition runs ahead of a conditional write, outside the lock.
	beforeTransition func(id string)
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: map[string]*domain.Document{}}
}

func (m *memoryStore) CreateDocument(_ context.Context, in domain.NewDocument) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("doc-%d", m.seq)
	m.docs[id] = &domain.Document{
		ID: id, Title: in.Title, FileName: in.FileName, MimeType: in.MimeType,
		SourceURL: in.SourceURL, UploaderID: in.UploaderID, ParentID: in.ParentID,
		Status: domain.StatusProcessing, CreatedAt: time.Now(),
	}
	return id, nil
}

func (m *memoryStore) UpdateDocument(_ context.Context, id string, u domain.DocumentUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return errors.New("not found")
	}
	if m.failUpdates > 0 && u.DepartmentID != nil {
		m.failUpdates--
		return errors.New("write conflict")
	}
	applyUpdate(doc, u)
	return nil
}

func (m *memoryStore) TransitionDocument(_ context.Context, id string, from domain.Status, u domain.DocumentUpdate) (bool, error) {
	if m.beforeTransition != nil {
		m.beforeTransition(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if doc.Status != from {
		return false, nil
	}
	applyUpdate(doc, u)
	return true, nil
}

func applyUpdate(doc *domain.Document, u domain.DocumentUpdate) {
	if u.Status != nil {
		doc.Status = *u.Status
	}
	if u.ActionPoints != nil {
		doc.ActionPoints = u.ActionPoints
	}
	if u.DepartmentID != nil {
		doc.DepartmentID = *u.DepartmentID
	}
	if u.Priority != nil {
		doc.Priority = *u.Priority
	}
	if u.CrossDepartment != nil {
		doc.CrossDepartment = *u.CrossDepartment
	}
	if u.AffectedDepartmentIDs != nil {
		doc.AffectedDepartmentIDs = u.AffectedDepartmentIDs
	}
	if u.Targeting != nil {
		doc.Targeting = u.Targeting
	}
	if u.OriginalLanguage != nil {
		doc.OriginalLanguage = *u.OriginalLanguage
	}
	if u.Summary != nil {
		doc.Summary = *u.Summary
	}
	if u.Error != nil {
		doc.Error = *u.Error
	}
	if u.Archive != nil {
		stats := *u.Archive
		doc.Archive = &stats
	}
}

func (m *memoryStore) GetDocumentByID(_ context.Context, id string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memoryStore) GetAllDocuments(context.Context) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (m *memoryStore) StaleDocuments(_ context.Context, olderThan time.Time) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Document
	for _, d := range m.docs {
		if d.Status == domain.StatusProcessing && d.CreatedAt.Before(olderThan) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryStore) statuses() map[domain.Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Status]int{}
	for _, d := range m.docs {
		out[d.Status]++
	}
	return out
}

type fakeDirectory struct {
	departments []domain.Department
	users       []domain.User
	usersErr    error
}

func (f *fakeDirectory) ListDepartments(context.Context) ([]domain.Department, error) {
	return f.departments, nil
}

func (f *fakeDirectory) ListUsers(context.Context) ([]domain.User, error) {
	return f.users, f.usersErr
}

func (f *fakeDirectory) DepartmentMembers(_ context.Context, deptID string) ([]string, error) {
	return visibility.DepartmentMembers(deptID, f.users), nil
}

type sentBatch struct {
	userIDs []string
	n       domain.Notification
}

type recordingSink struct {
	mu      sync.Mutex
	batches []sentBatch
	failN   int
}

func (r *recordingSink) CreateBulkNotifications(_ context.Context, ids []string, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failN > 0 {
		r.failN--
		return errors.New("sink unavailable")
	}
	r.batches = append(r.batches, sentBatch{userIDs: ids, n: n})
	return nil
}

type memoryFetcher struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryFetcher) Fetch(_ context.Context, ref domain.SourceRef) ([]byte, error) {
	if len(ref.Data) > 0 {
		return ref.Data, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[ref.URL]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return data, nil
}

// Upload stores into the same map so re-hosted entries can be fetched back.
func (m *memoryFetcher) Upload(_ context.Context, key string, data []byte, contentType string) (ports.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	url := "mem://" + key
	m.objects[url] = data
	return ports.StoredObject{URL: url, ContentType: contentType}, nil
}

type scriptedTranslator struct{}

func (scriptedTranslator) DetectLanguage(_ context.Context, text string) (ports.Detection, error) {
	for _, r := range text {
		if r >= 0x0D00 && r <= 0x0D7F {
			return ports.Detection{Code: "ml", Confidence: 0.93}, nil
		}
	}
	return ports.Detection{Code: "en", Confidence: 0.99}, nil
}

func (scriptedTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	if strings.Contains(text, "24 മണിക്കൂറിനുള്ളിൽ") {
		return "Submit the incident report within 24 hours.", nil
	}
	return "translated: " + text, nil
}

type scriptedGenerator struct {
	mu       sync.Mutex
	requests []ports.GenerationRequest
	none     bool
}

func (g *scriptedGenerator) Run(_ context.Context, req ports.GenerationRequest) (json.RawMessage, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if req.Variant == ports.VariantSummarize {
		return json.RawMessage(`{"summary":"Short summary."}`), nil
	}
	if g.none {
		return nil, nil
	}

	priority := "low"
	if strings.Contains(req.Prompt, "within 24 hours") {
		priority = "high"
	}
	return json.RawMessage(fmt.Sprintf(`{
		"actionPoints": ["Read the document"],
		"department": "Engineering",
		"priority": %q,
		"crossDepartment": {"departments": [
			{"name": "Safety", "relevance": 0.7, "reason": "incident"},
			{"name": "Finance", "relevance": 0.1, "reason": "cost"}
		], "coordinationRequired": true}
	}`, priority)), nil
}

func (g *scriptedGenerator) variants() []ports.PromptVariant {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]ports.PromptVariant, 0, len(g.requests))
	for _, r := range g.requests {
		out = append(out, r.Variant)
	}
	return out
}

type countingWorkspace struct {
	mu       sync.Mutex
	dir      string
	released int
}

func (w *countingWorkspace) Dir() string { return w.dir }

func (w *countingWorkspace) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.released++
	return os.RemoveAll(w.dir)
}

type harness struct {
	pipeline  *Pipeline
	store     *memoryStore
	directory *fakeDirectory
	sink      *recordingSink
	fetcher   *memoryFetcher
	generator *scriptedGenerator
	workspace *countingWorkspace
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store: newMemoryStore(),
		directory: &fakeDirectory{
			departments: []domain.Department{
				{ID: "eng", Name: "Engineering"},
				{ID: "safety", Name: "Safety"},
				{ID: "finance", Name: "Finance"},
			},
			users: []domain.User{
				{ID: "alice", Memberships: []domain.Membership{{DepartmentID: "eng", RoleTitle: "Engineer", RoleLevel: domain.LevelJunior}}},
				{ID: "bob", Memberships: []domain.Membership{{DepartmentID: "safety", RoleTitle: "Safety Officer", RoleLevel: domain.LevelSenior}}},
				{ID: "carol", Memberships: []domain.Membership{{DepartmentID: "finance", RoleTitle: "CFO", RoleLevel: domain.LevelExecutive}}},
			},
		},
		sink:      &recordingSink{},
		fetcher:   &memoryFetcher{},
		generator: &scriptedGenerator{},
		workspace: &countingWorkspace{dir: t.TempDir()},
	}

	ocr := stubOCR{}
	h.pipeline = NewPipeline(PipelineDeps{
		Store:      h.store,
		Directory:  h.directory,
		Extractors: extractor.NewRegistry(extractor.NewWordExtractor(h.fetcher), extractor.NewImageExtractor(h.fetcher, ocr)),
		Expander:   extractor.NewArchiveExpander(h.fetcher, h.fetcher, 0),
		Normalizer: normalize.NewNormalizer(scriptedTranslator{}, time.Second, nil),
		Classifier: classify.New(h.generator, classify.Options{Timeout: time.Second, SummaryTimeout: time.Second}),
		Notifier:   h.sink,
		NewWorkspace: func() (extractor.Workspace, error) {
			return h.workspace, nil
		},
		Options: Options{FallbackBroadcast: true, ArchiveConcurrency: 3},
	})
	return h
}

type stubOCR struct{}

func (stubOCR) DetectText(context.Context, []byte) (ports.OCRResult, error) {
	return ports.OCRResult{Text: "Fire drill on Monday", Words: []ports.OCRWord{{Text: "Fire", Confidence: 0.8}}}, nil
}

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()

	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	return buildZip(t, map[string][]byte{
		"word/document.xml": []byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`),
	})
}

func buildZip(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, data := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}
