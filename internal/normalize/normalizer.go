// Package normalize brings extracted text to English before classification.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/language"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

var englishBase, _ = language.English.Base()

// Normalizer detects the source language and translates to English when needed.
type Normalizer struct {
	translator ports.Translator
	timeout    time.Duration
	logger     *slog.Logger
}

// NewNormalizer wires the translation capability; timeout bounds each remote call.
func NewNormalizer(translator ports.Translator, timeout time.Duration, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{translator: translator, timeout: timeout, logger: logger}
}

// Normalize never fails: on any problem it degrades to the untranslated text.
func (n *Normalizer) Normalize(ctx context.Context, extracted domain.ExtractedText) domain.Outcome[domain.NormalizedText] {
	text := extracted.Text
	if strings.TrimSpace(text) == "" {
		return n.degrade(text, fmt.Errorf("empty text"))
	}
	if n.translator == nil {
		return n.degrade(text, fmt.Errorf("translator is not configured"))
	}

	detection, err := n.detect(ctx, text)
	if err != nil {
		return n.degrade(text, fmt.Errorf("detect language: %w", err))
	}

	code, ok := BaseLanguage(detection.Code)
	if !ok {
		return n.degrade(text, fmt.Errorf("undetermined language %q", detection.Code))
	}

	if IsEnglish(code) {
		return domain.Ok(domain.NormalizedText{
			Original:   text,
			Language:   "en",
			Translated: text,
			Confidence: clamp(detection.Confidence),
		})
	}

	translated, err := n.translate(ctx, text)
	if err != nil {
		return n.degrade(text, fmt.Errorf("translate from %s: %w", code, err))
	}
	if strings.TrimSpace(translated) == "" {
		return n.degrade(text, fmt.Errorf("translate from %s: empty translation", code))
	}

	n.logger.Debug("translated document text", "language", code, "chars", len(text))
	return domain.Ok(domain.NormalizedText{
		Original:   text,
		Language:   code,
		Translated: translated,
		Confidence: clamp(detection.Confidence),
	})
}

func (n *Normalizer) detect(ctx context.Context, text string) (ports.Detection, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	return n.translator.DetectLanguage(ctx, text)
}

func (n *Normalizer) translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := n.withTimeout(ctx)
	defer cancel()
	return n.translator.Translate(ctx, text, "en")
}

func (n *Normalizer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if n.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, n.timeout)
}

func (n *Normalizer) degrade(text string, reason error) domain.Outcome[domain.NormalizedText] {
	n.logger.Warn("language normalization degraded", "error", reason)
	return domain.Degraded(domain.NormalizedText{
		Original:   text,
		Language:   domain.LanguageUnknown,
		Translated: text,
		Confidence: 0,
	}, fmt.Errorf("%w: %v", domain.ErrNormalizationDegraded, reason))
}

// BaseLanguage reduces a BCP 47 code such as "ml-IN" to its base language.
func BaseLanguage(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, domain.LanguageUnknown) {
		return "", false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return base.String(), true
}

// IsEnglish reports whether a base language code is English.
func IsEnglish(code string) bool {
	base, err := language.ParseBase(code)
	if err != nil {
		return false
	}
	return base == englishBase
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
