package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"DocumentClassifier/internal/ports"
)

// Vision implements ports.OCR with DOCUMENT_TEXT_DETECTION.
type Vision struct {
	client client
}

var _ ports.OCR = (*Vision)(nil)

// NewVision builds an OCR client; endpoint is the images:annotate URL.
func NewVision(endpoint, apiKey string, timeout time.Duration) *Vision {
	return &Vision{client: newClient(endpoint, apiKey, timeout)}
}

type annotateResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Confidence float64 `json:"confidence"`
				Blocks     []struct {
					Paragraphs []struct {
						Words []struct {
							Confidence float64 `json:"confidence"`
							Symbols    []struct {
								Text string `json:"text"`
							} `json:"symbols"`
						} `json:"words"`
					} `json:"paragraphs"`
				} `json:"blocks"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// DetectText returns the full text and a per-word confidence distribution.
// Page-level confidences are reported as header entries.
func (v *Vision) DetectText(ctx context.Context, image []byte) (ports.OCRResult, error) {
	payload := map[string]any{
		"requests": []map[string]any{{
			"image":    map[string]string{"content": base64.StdEncoding.EncodeToString(image)},
			"features": []map[string]string{{"type": "DOCUMENT_TEXT_DETECTION"}},
		}},
	}

	var resp annotateResponse
	if err := v.client.post(ctx, "", payload, &resp); err != nil {
		return ports.OCRResult{}, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return ports.OCRResult{}, nil
	}

	first := resp.Responses[0]
	if first.Error != nil && first.Error.Message != "" {
		return ports.OCRResult{}, fmt.Errorf("vision annotate: %d %s", first.Error.Code, first.Error.Message)
	}
	if first.FullTextAnnotation == nil {
		return ports.OCRResult{}, nil
	}

	result := ports.OCRResult{Text: first.FullTextAnnotation.Text}
	for _, page := range first.FullTextAnnotation.Pages {
		result.Words = append(result.Words, ports.OCRWord{Confidence: page.Confidence, Header: true})
		for _, block := range page.Blocks {
			for _, para := range block.Paragraphs {
				for _, word := range para.Words {
					var b strings.Builder
					for _, s := range word.Symbols {
						b.WriteString(s.Text)
					}
					result.Words = append(result.Words, ports.OCRWord{Text: b.String(), Confidence: word.Confidence})
				}
			}
		}
	}
	return result, nil
}
