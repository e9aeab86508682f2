package ports

import (
	"context"
	"encoding/json"
	"time"

	"DocumentClassifier/internal/domain"
)

// DocumentStore persists classified documents.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc domain.NewDocument) (string, error)
	UpdateDocument(ctx context.Context, id string, update domain.DocumentUpdate) error
	// TransitionDocument applies update only while the document status is from.
	TransitionDocument(ctx context.Context, id string, from domain.Status, update domain.DocumentUpdate) (bool, error)
	GetDocumentByID(ctx context.Context, id string) (*domain.Document, error)
	GetAllDocuments(ctx context.Context) ([]domain.Document, error)
	StaleDocuments(ctx context.Context, olderThan time.Time) ([]domain.Document, error)
}

// Directory resolves departments and candidate recipients.
type Directory interface {
	ListDepartments(ctx context.Context) ([]domain.Department, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	DepartmentMembers(ctx context.Context, departmentID string) ([]string, error)
}

// Fetcher downloads the bytes behind a source reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref domain.SourceRef) ([]byte, error)
}

// OCRWord is one entry of an OCR confidence distribution.
type OCRWord struct {
	Text       string
	Confidence float64
	Header     bool
}

// OCRResult is the raw output of text detection on an image.
type OCRResult struct {
	Text  string
	Words []OCRWord
}

// OCR detects text in image bytes.
type OCR interface {
	DetectText(ctx context.Context, image []byte) (OCRResult, error)
}

// Detection is a detected language code with its confidence.
type Detection struct {
	Code       string
	Confidence float64
}

// Translator detects languages and translates text.
type Translator interface {
	DetectLanguage(ctx context.Context, text string) (Detection, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// PromptVariant names the prompt a generation request runs.
type PromptVariant string

const (
	VariantClassifySource     PromptVariant = "classify_source"
	VariantClassifyText       PromptVariant = "classify_text"
	VariantClassifyTranslated PromptVariant = "classify_translated"
	VariantSummarize          PromptVariant = "summarize"
)

// GenerationRequest is one call to the generative capability.
type GenerationRequest struct {
	Variant PromptVariant
	System  string
	Prompt  string
	// Source is set only for variants that forward the original file.
	Source   *domain.SourceRef
	MimeType string
	Schema   json.RawMessage
}

// Generator runs a structured generation; a nil result with nil error means "no result".
type Generator interface {
	Run(ctx context.Context, req GenerationRequest) (json.RawMessage, error)
}

// NotificationSink delivers notifications to users.
type NotificationSink interface {
	CreateBulkNotifications(ctx context.Context, userIDs []string, n domain.Notification) error
}

// StoredObject describes a re-hosted blob.
type StoredObject struct {
	URL         string
	ContentType string
}

// BlobStore re-hosts files and returns a fetchable URL.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (StoredObject, error)
}

// Scheduler controls when periodic jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
