// Package httpapi exposes the classification entry points over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/infrastructure/storage"
	"DocumentClassifier/internal/usecase"
)

// Service is the slice of the pipeline the HTTP layer drives.
type Service interface {
	ClassifyDocument(ctx context.Context, req usecase.ClassifyRequest) (usecase.ClassifyResponse, error)
	ProcessArchive(ctx context.Context, req usecase.ArchiveRequest) (usecase.ArchiveResult, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	VisibleDocuments(ctx context.Context, userID string) ([]domain.Document, error)
}

// NotificationReader lists delivered notifications; optional.
type NotificationReader interface {
	NotificationsFor(ctx context.Context, userID string) ([]storage.StoredNotification, error)
}

// Handler routes requests to the pipeline.
type Handler struct {
	service        Service
	notifications  NotificationReader
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewHandler builds the handler; maxUploadBytes defaults to 200MB.
func NewHandler(service Service, notifications NotificationReader, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 200 << 20
	}
	return &Handler{
		service:        service,
		notifications:  notifications,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Routes returns the chi router with all endpoints mounted.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/documents", h.handleClassify)
		r.Get("/documents/{id}", h.handleGetDocument)
		r.Post("/archives", h.handleArchive)
		r.Get("/users/{userID}/documents", h.handleVisibleDocuments)
		r.Get("/users/{userID}/notifications", h.handleNotifications)
	})

	return r
}

// upload is the decoded body of a document or archive submission.
type upload struct {
	URL        string `json:"url"`
	FileName   string `json:"fileName"`
	MimeType   string `json:"mimeType"`
	UploaderID string `json:"uploaderId"`
	Title      string `json:"title"`
	ParentID   string `json:"parentId"`
	data       []byte
}

func (u upload) source() domain.SourceRef {
	return domain.SourceRef{URL: u.URL, Data: u.data}
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	in, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.service.ClassifyDocument(r.Context(), usecase.ClassifyRequest{
		Source:     in.source(),
		FileName:   in.FileName,
		MimeType:   in.MimeType,
		UploaderID: in.UploaderID,
		Title:      in.Title,
		ParentID:   in.ParentID,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	in, err := h.readUpload(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.service.ProcessArchive(r.Context(), usecase.ArchiveRequest{
		Source:     in.source(),
		FileName:   in.FileName,
		MimeType:   in.MimeType,
		UploaderID: in.UploaderID,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, documentView(*doc))
}

func (h *Handler) handleVisibleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.service.VisibleDocuments(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	out := make([]documentJSON, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentView(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if h.notifications == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("notifications are not stored"))
		return
	}
	list, err := h.notifications.NotificationsFor(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if list == nil {
		list = []storage.StoredNotification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// readUpload accepts a multipart form with a "file" part or a JSON body with a url.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return upload{}, fmt.Errorf("parse form: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return upload{}, fmt.Errorf("file part: %w", err)
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return upload{}, fmt.Errorf("read file part: %w", err)
		}
		if len(data) == 0 {
			return upload{}, fmt.Errorf("file part is empty")
		}

		in := upload{
			FileName:   header.Filename,
			MimeType:   header.Header.Get("Content-Type"),
			UploaderID: r.FormValue("uploaderId"),
			Title:      r.FormValue("title"),
			ParentID:   r.FormValue("parentId"),
			data:       data,
		}
		if v := r.FormValue("mimeType"); v != "" {
			in.MimeType = v
		}
		return in, nil
	}

	var in upload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		return upload{}, fmt.Errorf("decode body: %w", err)
	}
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		return upload{}, fmt.Errorf("url is required")
	}
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return upload{}, fmt.Errorf("url must be an absolute http or https address")
	}
	return in, nil
}

// documentJSON is the wire shape of a persisted document.
type documentJSON struct {
	ID                    string                          `json:"id"`
	Title                 string                          `json:"title"`
	FileName              string                          `json:"fileName"`
	MimeType              string                          `json:"mimeType"`
	SourceURL             string                          `json:"sourceUrl,omitempty"`
	UploaderID            string                          `json:"uploaderId,omitempty"`
	ParentID              string                          `json:"parentId,omitempty"`
	Status                domain.Status                   `json:"status"`
	ActionPoints          []string                        `json:"actionPoints"`
	DepartmentID          string                          `json:"departmentId,omitempty"`
	Priority              domain.Priority                 `json:"priority,omitempty"`
	CrossDepartment       domain.CrossDepartmentAnalysis  `json:"crossDepartmentAnalysis"`
	AffectedDepartmentIDs []string                        `json:"affectedDepartmentIds"`
	Targeting             *domain.TargetingClassification `json:"targetingClassification,omitempty"`
	OriginalLanguage      string                          `json:"originalLanguage,omitempty"`
	Summary               string                          `json:"summary,omitempty"`
	Error                 string                          `json:"error,omitempty"`
	Archive               *domain.ArchiveStats            `json:"archive,omitempty"`
	CreatedAt             time.Time                       `json:"createdAt"`
	UpdatedAt             time.Time                       `json:"updatedAt"`
}

func documentView(d domain.Document) documentJSON {
	actions := d.ActionPoints
	if actions == nil {
		actions = []string{}
	}
	affected := d.AffectedDepartmentIDs
	if affected == nil {
		affected = []string{}
	}
	return documentJSON{
		ID:                    d.ID,
		Title:                 d.Title,
		FileName:              d.FileName,
		MimeType:              d.MimeType,
		SourceURL:             d.SourceURL,
		UploaderID:            d.UploaderID,
		ParentID:              d.ParentID,
		Status:                d.Status,
		ActionPoints:          actions,
		DepartmentID:          d.DepartmentID,
		Priority:              d.Priority,
		CrossDepartment:       d.CrossDepartment,
		AffectedDepartmentIDs: affected,
		Targeting:             d.Targeting,
		OriginalLanguage:      d.OriginalLanguage,
		Summary:               d.Summary,
		Error:                 d.Error,
		Archive:               d.Archive,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrArchiveUpload):
		return http.StatusBadRequest
	case domain.IsExtractionError(err):
		return http.StatusUnprocessableEntity
	case domain.IsClassificationFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
