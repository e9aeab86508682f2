package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/extractor"
)

// ArchiveRequest is a zip upload whose entries are classified individually.
type ArchiveRequest struct {
	Source     domain.SourceRef
	FileName   string
	MimeType   string
	UploaderID string
}

// ArchiveFailure is one entry that did not end as a processed document.
type ArchiveFailure struct {
	FileName string `json:"fileName"`
	Reason   string `json:"reason"`
}

// ArchiveResult aggregates the per-entry outcomes of one archive.
type ArchiveResult struct {
	ArchiveID          string           `json:"archiveId"`
	FileCount          int              `json:"fileCount"`
	ProcessedFileNames []string         `json:"processedFileNames"`
	DocumentIDs        []string         `json:"documentIds"`
	Failures           []ArchiveFailure `json:"failures"`
}

type entryResult struct {
	fileName string
	docID    string
	err      error
}

// ProcessArchive expands the archive into a scoped workspace, classifies every
// retained entry concurrently and releases the workspace once all entries have
// settled. Entry failures never cancel siblings.
func (p *Pipeline) ProcessArchive(ctx context.Context, req ArchiveRequest) (ArchiveResult, error) {
	if p.expander == nil || p.store == nil {
		return ArchiveResult{}, fmt.Errorf("archive pipeline is not configured")
	}

	archiveID, err := p.store.CreateDocument(ctx, domain.NewDocument{
		Title:      extractor.TitleFromFileName(req.FileName),
		FileName:   req.FileName,
		MimeType:   req.MimeType,
		SourceURL:  req.Source.URL,
		UploaderID: req.UploaderID,
	})
	if err != nil {
		return ArchiveResult{}, fmt.Errorf("create archive document: %w", err)
	}
	logger := p.logger.With("archive_id", archiveID, "file", req.FileName)

	ws, err := p.newWorkspace()
	if err != nil {
		err = fmt.Errorf("process archive %s: %w", req.FileName, err)
		p.fail(ctx, archiveID, err)
		return ArchiveResult{}, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			logger.Warn("release archive workspace", "error", err)
		}
	}()

	units, expandFailures, err := p.expander.Expand(ctx, domain.IngestionUnit{
		Source:     req.Source,
		MimeType:   req.MimeType,
		FileName:   req.FileName,
		UploaderID: req.UploaderID,
	}, archiveID, ws)
	if err != nil {
		p.fail(ctx, archiveID, err)
		return ArchiveResult{}, err
	}

	results := make([]entryResult, len(units))
	var g errgroup.Group
	g.SetLimit(p.opts.ArchiveConcurrency)
	for i, unit := range units {
		i, unit := i, unit
		g.Go(func() error {
			resp, err := p.ClassifyDocument(ctx, ClassifyRequest{
				Source:     unit.Source,
				FileName:   unit.FileName,
				MimeType:   unit.MimeType,
				UploaderID: unit.UploaderID,
				Title:      unit.Title,
				ParentID:   unit.ParentID,
			})
			results[i] = entryResult{fileName: unit.FileName, docID: resp.DocumentID, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := ArchiveResult{
		ArchiveID:          archiveID,
		FileCount:          len(units) + len(expandFailures),
		ProcessedFileNames: []string{},
		DocumentIDs:        []string{},
		Failures:           []ArchiveFailure{},
	}
	for _, f := range expandFailures {
		out.Failures = append(out.Failures, ArchiveFailure{FileName: f.FileName, Reason: f.Err.Error()})
	}
	for _, r := range results {
		if r.err != nil {
			out.Failures = append(out.Failures, ArchiveFailure{FileName: r.fileName, Reason: r.err.Error()})
			continue
		}
		out.ProcessedFileNames = append(out.ProcessedFileNames, r.fileName)
		out.DocumentIDs = append(out.DocumentIDs, r.docID)
	}

	p.finishArchive(ctx, archiveID, domain.ArchiveStats{
		FileCount:      out.FileCount,
		ProcessedCount: len(out.ProcessedFileNames),
		FailedCount:    len(out.Failures),
	}, logger)

	logger.Info("archive processed", "entries", out.FileCount,
		"processed", len(out.ProcessedFileNames), "failed", len(out.Failures))
	return out, nil
}

// finishArchive records the counters on the parent document. Children keep
// their own status; the parent is processed once every entry has settled.
func (p *Pipeline) finishArchive(ctx context.Context, id string, stats domain.ArchiveStats, logger *slog.Logger) {
	status := domain.StatusProcessed
	moved, err := p.store.TransitionDocument(context.WithoutCancel(ctx), id, domain.StatusProcessing,
		domain.DocumentUpdate{Status: &status, Archive: &stats})
	if err != nil {
		logger.Error("record archive counters", "error", err)
		return
	}
	if !moved {
		logger.Warn("archive document already terminal, counters not recorded")
	}
}
