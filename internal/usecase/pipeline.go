package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"DocumentClassifier/internal/classify"
	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/extractor"
	"DocumentClassifier/internal/format"
	"DocumentClassifier/internal/normalize"
	"DocumentClassifier/internal/ports"
	"DocumentClassifier/internal/targeting"
	"DocumentClassifier/internal/visibility"
)

// ErrArchiveUpload is returned when an archive is submitted as a single document.
var ErrArchiveUpload = errors.New("archive uploads must go through ProcessArchive")

// Options tune fan-out and archive behaviour.
type Options struct {
	// Departments is the allowed list used when the directory cannot be read.
	Departments        []domain.Department
	ArchiveConcurrency int
	FallbackBroadcast  bool
	NotifyTimeout      time.Duration
	LinkPrefix         string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Store        ports.DocumentStore
	Directory    ports.Directory
	Extractors   *extractor.Registry
	Expander     *extractor.ArchiveExpander
	Normalizer   *normalize.Normalizer
	Classifier   *classify.Classifier
	Targeting    *targeting.Classifier
	Visibility   visibility.Policy
	Notifier     ports.NotificationSink
	NewWorkspace func() (extractor.Workspace, error)
	Options      Options
	Logger       *slog.Logger
}

// Pipeline implements the document ingestion and classification workflow.
type Pipeline struct {
	store        ports.DocumentStore
	directory    ports.Directory
	extractors   *extractor.Registry
	expander     *extractor.ArchiveExpander
	normalizer   *normalize.Normalizer
	classifier   *classify.Classifier
	targeting    *targeting.Classifier
	visibility   visibility.Policy
	notifier     ports.NotificationSink
	newWorkspace func() (extractor.Workspace, error)
	opts         Options
	logger       *slog.Logger

	background sync.WaitGroup
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newWorkspace := deps.NewWorkspace
	if newWorkspace == nil {
		newWorkspace = extractor.NewTempWorkspace
	}
	rules := deps.Targeting
	if rules == nil {
		rules = targeting.New(targeting.DefaultRules())
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = normalize.NewNormalizer(nil, 0, logger)
	}
	opts := deps.Options
	if opts.ArchiveConcurrency <= 0 {
		opts.ArchiveConcurrency = 4
	}
	if opts.LinkPrefix == "" {
		opts.LinkPrefix = "/documents/"
	}

	return &Pipeline{
		store:        deps.Store,
		directory:    deps.Directory,
		extractors:   deps.Extractors,
		expander:     deps.Expander,
		normalizer:   normalizer,
		classifier:   deps.Classifier,
		targeting:    rules,
		visibility:   deps.Visibility,
		notifier:     deps.Notifier,
		newWorkspace: newWorkspace,
		opts:         opts,
		logger:       logger,
	}
}

// ClassifyRequest is one file submitted for classification.
type ClassifyRequest struct {
	Source     domain.SourceRef
	FileName   string
	MimeType   string
	UploaderID string
	Title      string
	ParentID   string
}

func (r ClassifyRequest) unit() domain.IngestionUnit {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = extractor.TitleFromFileName(r.FileName)
	}
	return domain.IngestionUnit{
		Source:     r.Source,
		MimeType:   r.MimeType,
		FileName:   r.FileName,
		Title:      title,
		UploaderID: r.UploaderID,
		ParentID:   r.ParentID,
	}
}

// ClassifyResponse is what callers get back once a document is processed.
type ClassifyResponse struct {
	DocumentID      string                         `json:"documentId"`
	ActionPoints    []string                       `json:"actionPoints"`
	Department      string                         `json:"department"`
	Priority        domain.Priority                `json:"priority"`
	Targeting       domain.TargetingClassification `json:"targetingClassification"`
	CrossDepartment domain.CrossDepartmentAnalysis `json:"crossDepartmentAnalysis"`
}

// ClassifyDocument runs one unit through detect, extract, normalize, classify,
// target and fan-out. Only extraction and classification failures are returned;
// the document then ends as failed.
func (p *Pipeline) ClassifyDocument(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error) {
	if p.store == nil || p.classifier == nil {
		return ClassifyResponse{}, fmt.Errorf("pipeline is not configured")
	}
	unit := req.unit()
	if unit.Source.Empty() {
		return ClassifyResponse{}, fmt.Errorf("classify %s: empty source", unit.FileName)
	}

	kind := format.Detect(unit.MimeType, unit.FileName)
	if kind == domain.FormatArchive {
		return ClassifyResponse{}, fmt.Errorf("classify %s: %w", unit.FileName, ErrArchiveUpload)
	}

	id, err := p.store.CreateDocument(ctx, domain.NewDocument{
		Title:      unit.Title,
		FileName:   unit.FileName,
		MimeType:   unit.MimeType,
		SourceURL:  unit.Source.URL,
		UploaderID: unit.UploaderID,
		ParentID:   unit.ParentID,
	})
	if err != nil {
		return ClassifyResponse{}, fmt.Errorf("create document: %w", err)
	}
	logger := p.logger.With("document_id", id, "file", unit.FileName, "format", string(kind))

	var normalized *domain.NormalizedText
	if kind == domain.FormatImage || kind == domain.FormatWord {
		extracted := p.extract(ctx, kind, unit)
		if !extracted.Usable() {
			p.fail(ctx, id, extracted.Reason)
			return ClassifyResponse{}, extracted.Reason
		}

		norm := p.normalizer.Normalize(ctx, extracted.Value)
		if norm.Kind == domain.OutcomeDegraded {
			logger.Warn("continuing with untranslated text", "error", norm.Reason)
		}
		normalized = &norm.Value
	}

	input := classify.InputFor(unit, normalized)
	result := p.classifier.Classify(ctx, input, unit.Title, p.departments(ctx))
	if !result.Usable() {
		p.fail(ctx, id, result.Reason)
		return ClassifyResponse{}, result.Reason
	}
	if result.Kind == domain.OutcomeDegraded {
		logger.Warn("classification degraded", "error", result.Reason)
	}
	classification := result.Value

	content := classify.Text(input)
	if content == "" {
		content = strings.Join(classification.ActionPoints, "\n")
	}
	target := p.targeting.Classify(unit.Title, content, classification.Department)

	doc := domain.Document{
		ID:                    id,
		Title:                 unit.Title,
		FileName:              unit.FileName,
		MimeType:              unit.MimeType,
		SourceURL:             unit.Source.URL,
		UploaderID:            unit.UploaderID,
		ParentID:              unit.ParentID,
		Status:                domain.StatusProcessed,
		ActionPoints:          classification.ActionPoints,
		DepartmentID:          classification.Department,
		Priority:              classification.Priority,
		CrossDepartment:       classification.CrossDepartment,
		AffectedDepartmentIDs: classification.CrossDepartment.AffectedDepartmentIDs(),
		Targeting:             &target,
	}
	if normalized != nil && normalized.NonEnglish() {
		doc.OriginalLanguage = normalized.Language
	}

	if out := p.persist(ctx, doc); out.Kind == domain.OutcomeDegraded {
		logger.Warn("document persisted with warnings", "error", out.Reason)
	}

	p.summarize(ctx, id, input, unit.Title, logger)

	if out := p.notify(ctx, doc); out.Kind == domain.OutcomeDegraded {
		logger.Warn("notification fan-out degraded", "error", out.Reason, "recipients", len(out.Value))
	} else {
		logger.Info("document processed", "department", doc.DepartmentID, "priority", string(doc.Priority),
			"targeting", string(target.Type), "recipients", len(out.Value))
	}

	return ClassifyResponse{
		DocumentID:      id,
		ActionPoints:    classification.ActionPoints,
		Department:      classification.Department,
		Priority:        classification.Priority,
		Targeting:       target,
		CrossDepartment: classification.CrossDepartment,
	}, nil
}

// GetDocument returns a persisted document.
func (p *Pipeline) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if p.store == nil {
		return nil, fmt.Errorf("pipeline is not configured")
	}
	doc, err := p.store.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return doc, nil
}

// VisibleDocuments lists the documents userID is allowed to see.
func (p *Pipeline) VisibleDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	if p.store == nil || p.directory == nil {
		return nil, fmt.Errorf("pipeline is not configured")
	}

	users, err := p.directory.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var user *domain.User
	for i := range users {
		if users[i].ID == userID {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
	}

	docs, err := p.store.GetAllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	visible := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if doc.Status != domain.StatusProcessed {
			continue
		}
		if p.visibility.Visible(doc, *user) {
			visible = append(visible, doc)
		}
	}
	return visible, nil
}

// Wait blocks until background summary jobs finish or ctx is done.
func (p *Pipeline) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) extract(ctx context.Context, kind domain.Format, unit domain.IngestionUnit) domain.Outcome[domain.ExtractedText] {
	if p.extractors == nil {
		return domain.Fatal[domain.ExtractedText](&domain.ExtractionError{
			Adapter: string(kind), FileName: unit.FileName, Cause: fmt.Errorf("no extractors configured"),
		})
	}
	ex, err := p.extractors.Resolve(kind)
	if err != nil {
		return domain.Fatal[domain.ExtractedText](&domain.ExtractionError{Adapter: string(kind), FileName: unit.FileName, Cause: err})
	}
	return ex.Extract(ctx, unit)
}

// departments returns the allowed list, preferring the directory.
func (p *Pipeline) departments(ctx context.Context) []domain.Department {
	if p.directory == nil {
		return p.opts.Departments
	}
	list, err := p.directory.ListDepartments(ctx)
	if err != nil {
		p.logger.Warn("list departments failed, using configured list", "error", err)
		return p.opts.Departments
	}
	if len(list) == 0 {
		return p.opts.Departments
	}
	return list
}

// fail moves a document to its failed terminal state.
func (p *Pipeline) fail(ctx context.Context, id string, reason error) {
	status := domain.StatusFailed
	msg := "processing failed"
	if reason != nil {
		msg = reason.Error()
	}
	if err := p.store.UpdateDocument(context.WithoutCancel(ctx), id, domain.DocumentUpdate{Status: &status, Error: &msg}); err != nil {
		p.logger.Error("mark document failed", "document_id", id, "error", err)
		return
	}
	p.logger.Warn("document failed", "document_id", id, "error", reason)
}
