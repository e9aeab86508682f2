package extractor

import (
	"context"
	"fmt"
	"strings"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

const imageAdapterName = "image"

// DefaultOCRConfidence is reported when OCR returns no per-word evidence.
const DefaultOCRConfidence = 0.9

// ImageExtractor runs OCR over image uploads.
type ImageExtractor struct {
	fetcher ports.Fetcher
	ocr     ports.OCR
}

var _ Extractor = (*ImageExtractor)(nil)

// NewImageExtractor wires the downloader and the OCR capability.
func NewImageExtractor(fetcher ports.Fetcher, ocr ports.OCR) *ImageExtractor {
	return &ImageExtractor{fetcher: fetcher, ocr: ocr}
}

// Name identifies the adapter in logs and extracted text.
func (i *ImageExtractor) Name() string { return imageAdapterName }

// Format returns the format this extractor serves.
func (i *ImageExtractor) Format() domain.Format { return domain.FormatImage }

// Extract downloads the image and returns OCR text with a scalar confidence.
func (i *ImageExtractor) Extract(ctx context.Context, unit domain.IngestionUnit) domain.Outcome[domain.ExtractedText] {
	if i.fetcher == nil || i.ocr == nil {
		return extractionFailure(imageAdapterName, unit, fmt.Errorf("ocr adapter is not configured"))
	}

	data, err := i.fetcher.Fetch(ctx, unit.Source)
	if err != nil {
		return extractionFailure(imageAdapterName, unit, fmt.Errorf("download: %w", err))
	}

	result, err := i.ocr.DetectText(ctx, data)
	if err != nil {
		return extractionFailure(imageAdapterName, unit, fmt.Errorf("detect text: %w", err))
	}
	if strings.TrimSpace(result.Text) == "" {
		return extractionFailure(imageAdapterName, unit, errNoContent)
	}

	return domain.Ok(domain.ExtractedText{
		Text:       strings.TrimSpace(result.Text),
		ByteLength: len(data),
		Adapter:    imageAdapterName,
		Confidence: AverageConfidence(result.Words),
	})
}

// AverageConfidence averages non-header entries, defaulting when there are none.
func AverageConfidence(words []ports.OCRWord) float64 {
	var (
		sum   float64
		count int
	)
	for _, w := range words {
		if w.Header {
			continue
		}
		sum += w.Confidence
		count++
	}
	if count == 0 {
		return DefaultOCRConfidence
	}
	return sum / float64(count)
}
