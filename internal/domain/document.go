package domain

import "time"

// Format is the coarse content family a file is routed by.
type Format string

const (
	FormatImage   Format = "image"
	FormatWord    Format = "word"
	FormatArchive Format = "archive"
	FormatOther   Format = "other"
)

// SourceRef points at the bytes of an uploaded file: a URL or an in-memory handle.
type SourceRef struct {
	URL  string
	Data []byte
}

// Empty reports whether the reference carries neither a URL nor bytes.
func (s SourceRef) Empty() bool {
	return s.URL == "" && len(s.Data) == 0
}

// IngestionUnit is one file submitted for classification.
type IngestionUnit struct {
	Source     SourceRef
	MimeType   string
	FileName   string
	Title      string
	UploaderID string
	ParentID   string
}

// ExtractedText is the output of a local text extraction adapter.
type ExtractedText struct {
	Text       string
	ByteLength int
	Adapter    string
	Confidence float64
}

// NormalizedText is extracted text brought to English.
type NormalizedText struct {
	Original   string
	Language   string
	Translated string
	Confidence float64
}

// LanguageUnknown marks text whose language could not be detected.
const LanguageUnknown = "und"

// NonEnglish reports whether the source language must be surfaced downstream.
func (n NormalizedText) NonEnglish() bool {
	return n.Language != "" && n.Language != "en" && n.Language != LanguageUnknown
}

// Priority ranks how urgently a document needs attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// MinRelevance is the lowest cross-department score kept downstream.
const MinRelevance = 0.3

// DepartmentRelevance is a scored judgment that another department should see a document.
type DepartmentRelevance struct {
	DepartmentID string   `json:"departmentId,omitempty"`
	Name         string   `json:"name"`
	Relevance    float64  `json:"relevance"`
	Reason       string   `json:"reason"`
	Tags         []string `json:"tags"`
}

// CrossDepartmentAnalysis groups the departments affected beyond the primary owner.
type CrossDepartmentAnalysis struct {
	Departments          []DepartmentRelevance `json:"departments"`
	CoordinationRequired bool                  `json:"coordinationRequired"`
}

// AffectedDepartmentIDs lists the resolved ids of the retained departments.
func (c CrossDepartmentAnalysis) AffectedDepartmentIDs() []string {
	ids := make([]string, 0, len(c.Departments))
	for _, d := range c.Departments {
		if d.DepartmentID != "" {
			ids = append(ids, d.DepartmentID)
		}
	}
	return ids
}

// ClassificationResult is what the content classification stage derives.
type ClassificationResult struct {
	ActionPoints    []string
	Department      string
	Priority        Priority
	CrossDepartment CrossDepartmentAnalysis
}

// Status is the lifecycle state of a persisted document.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// Document is the persisted aggregate owned by the document store.
type Document struct {
	ID                    string
	Title                 string
	FileName              string
	MimeType              string
	SourceURL             string
	UploaderID            string
	ParentID              string
	Status                Status
	ActionPoints          []string
	DepartmentID          string
	Priority              Priority
	CrossDepartment       CrossDepartmentAnalysis
	AffectedDepartmentIDs []string
	Targeting             *TargetingClassification
	OriginalLanguage      string
	Summary               string
	Error                 string
	Archive               *ArchiveStats
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ArchiveStats are the summary counters of an archive parent document. They
// are independent of the status each child document carries.
type ArchiveStats struct {
	FileCount      int `json:"fileCount"`
	ProcessedCount int `json:"processedCount"`
	FailedCount    int `json:"failedCount"`
}

// NewDocument carries the fields written when an ingestion unit is accepted.
type NewDocument struct {
	Title      string
	FileName   string
	MimeType   string
	SourceURL  string
	UploaderID string
	ParentID   string
}

// DocumentUpdate is a partial update; nil fields are left untouched.
type DocumentUpdate struct {
	Status                *Status
	ActionPoints          []string
	DepartmentID          *string
	Priority              *Priority
	CrossDepartment       *CrossDepartmentAnalysis
	AffectedDepartmentIDs []string
	Targeting             *TargetingClassification
	OriginalLanguage      *string
	Summary               *string
	Error                 *string
	Archive               *ArchiveStats
}

// Department is an organisational unit documents are routed to.
type Department struct {
	ID   string
	Name string
}

// Membership ties a user to a department with a role.
type Membership struct {
	DepartmentID string
	RoleTitle    string
	RoleLevel    RoleLevel
}

// User is a candidate notification recipient.
type User struct {
	ID          string
	Name        string
	Memberships []Membership
}

// Membership returns the user's membership in a department, if any.
func (u User) Membership(departmentID string) (Membership, bool) {
	for _, m := range u.Memberships {
		if m.DepartmentID == departmentID {
			return m, true
		}
	}
	return Membership{}, false
}

// Notification is the payload fanned out to recipients.
type Notification struct {
	Message string
	Href    string
}
