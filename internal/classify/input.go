// Package classify derives action points, department, priority and
// cross-department relevance through the generative capability.
package classify

import (
	"strings"

	"DocumentClassifier/internal/domain"
)

// Input is what the classifier sees for one unit. Exactly one variant is
// populated: SourceInput, PlainTextInput or TranslatedInput.
type Input interface {
	variant() string
}

// SourceInput forwards the original file; used for formats without local extraction.
type SourceInput struct {
	Source   domain.SourceRef
	MimeType string
	FileName string
}

// PlainTextInput carries text that is already English.
type PlainTextInput struct {
	Text string
}

// TranslatedInput carries English text translated from Language.
type TranslatedInput struct {
	Text     string
	Language string
}

func (SourceInput) variant() string     { return "source" }
func (PlainTextInput) variant() string  { return "text" }
func (TranslatedInput) variant() string { return "translated" }

// InputFor picks the variant once, after normalization. normalized is nil for
// formats that skip local extraction.
func InputFor(unit domain.IngestionUnit, normalized *domain.NormalizedText) Input {
	if normalized == nil {
		return SourceInput{Source: unit.Source, MimeType: unit.MimeType, FileName: unit.FileName}
	}
	if normalized.NonEnglish() {
		return TranslatedInput{Text: normalized.Translated, Language: normalized.Language}
	}
	text := normalized.Translated
	if strings.TrimSpace(text) == "" {
		text = normalized.Original
	}
	return PlainTextInput{Text: text}
}

// Text returns the local text an input carries, if any.
func Text(in Input) string {
	switch v := in.(type) {
	case PlainTextInput:
		return v.Text
	case TranslatedInput:
		return v.Text
	default:
		return ""
	}
}
