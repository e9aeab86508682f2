// Package extractor turns uploaded files into raw text, one adapter per format.
package extractor

import (
	"context"
	"fmt"

	"DocumentClassifier/internal/domain"
)

// Extractor captures a single format-specific extraction strategy.
type Extractor interface {
	Name() string
	Format() domain.Format
	Extract(ctx context.Context, unit domain.IngestionUnit) domain.Outcome[domain.ExtractedText]
}

// Registry keeps a mapping from formats to their extractors.
type Registry struct {
	extractors map[domain.Format]Extractor
}

// NewRegistry builds a registry holding the given extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: map[domain.Format]Extractor{}}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the extractor for its format.
func (r *Registry) Register(e Extractor) {
	if r.extractors == nil {
		r.extractors = map[domain.Format]Extractor{}
	}
	r.extractors[e.Format()] = e
}

// Resolve returns the extractor for a format or an error if none is registered.
func (r *Registry) Resolve(f domain.Format) (Extractor, error) {
	if e, ok := r.extractors[f]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("no extractor registered for format %s", f)
}

func extractionFailure(adapter string, unit domain.IngestionUnit, cause error) domain.Outcome[domain.ExtractedText] {
	return domain.Fatal[domain.ExtractedText](&domain.ExtractionError{
		Adapter:  adapter,
		FileName: unit.FileName,
		Cause:    cause,
	})
}
