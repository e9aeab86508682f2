package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"DocumentClassifier/internal/ports"
)

const (
	// maxDetectRunes is enough text for a reliable detection.
	maxDetectRunes = 2000
	// maxChunkRunes keeps each translated segment under the API's per-string limit.
	maxChunkRunes = 4500
)

// Translator implements ports.Translator against Translation API v2.
type Translator struct {
	client client
}

var _ ports.Translator = (*Translator)(nil)

// NewTranslator builds a client; endpoint is the .../language/translate/v2 base URL.
func NewTranslator(endpoint, apiKey string, timeout time.Duration) *Translator {
	return &Translator{client: newClient(endpoint, apiKey, timeout)}
}

// DetectLanguage returns the most likely language of text.
func (t *Translator) DetectLanguage(ctx context.Context, text string) (ports.Detection, error) {
	var resp struct {
		Data struct {
			Detections [][]struct {
				Language   string  `json:"language"`
				Confidence float64 `json:"confidence"`
			} `json:"detections"`
		} `json:"data"`
	}

	sample := []rune(strings.TrimSpace(text))
	if len(sample) > maxDetectRunes {
		sample = sample[:maxDetectRunes]
	}
	if err := t.client.post(ctx, "/detect", map[string]any{"q": string(sample)}, &resp); err != nil {
		return ports.Detection{}, fmt.Errorf("detect language: %w", err)
	}

	best := ports.Detection{}
	for _, group := range resp.Data.Detections {
		for _, d := range group {
			if best.Code == "" || d.Confidence > best.Confidence {
				best = ports.Detection{Code: d.Language, Confidence: d.Confidence}
			}
		}
	}
	if best.Code == "" {
		return ports.Detection{}, fmt.Errorf("detect language: empty response")
	}
	return best, nil
}

// Translate translates text into targetLang, chunking long documents by line.
func (t *Translator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	chunks := splitChunks(text, maxChunkRunes)
	if len(chunks) == 0 {
		return "", nil
	}

	var resp struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	payload := map[string]any{"q": chunks, "target": targetLang, "format": "text"}
	if err := t.client.post(ctx, "", payload, &resp); err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	if len(resp.Data.Translations) != len(chunks) {
		return "", fmt.Errorf("translate: got %d segments for %d chunks", len(resp.Data.Translations), len(chunks))
	}

	parts := make([]string, 0, len(chunks))
	for _, tr := range resp.Data.Translations {
		parts = append(parts, tr.TranslatedText)
	}
	return strings.Join(parts, "\n"), nil
}

// splitChunks groups whole lines into chunks of at most limit runes; a single
// longer line is cut at the limit.
func splitChunks(text string, limit int) []string {
	var (
		chunks []string
		cur    []rune
	)
	flush := func() {
		if strings.TrimSpace(string(cur)) != "" {
			chunks = append(chunks, string(cur))
		}
		cur = cur[:0]
	}

	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		r := []rune(line)
		for len(r) > limit {
			flush()
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		if len(cur) > 0 && len(cur)+1+len(r) > limit {
			flush()
		}
		if len(cur) > 0 {
			cur = append(cur, '\n')
		}
		cur = append(cur, r...)
	}
	flush()
	return chunks
}
