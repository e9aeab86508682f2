package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

const wordAdapterName = "word"

var errNoContent = errors.New("no usable text content")

// WordExtractor pulls raw text out of word-processing documents.
type WordExtractor struct {
	fetcher ports.Fetcher
}

var _ Extractor = (*WordExtractor)(nil)

// NewWordExtractor wires the downloader used to read the document bytes.
func NewWordExtractor(fetcher ports.Fetcher) *WordExtractor {
	return &WordExtractor{fetcher: fetcher}
}

// Name identifies the adapter in logs and extracted text.
func (w *WordExtractor) Name() string { return wordAdapterName }

// Format returns the format this extractor serves.
func (w *WordExtractor) Format() domain.Format { return domain.FormatWord }

// Extract downloads the document and strips formatting down to raw text.
func (w *WordExtractor) Extract(ctx context.Context, unit domain.IngestionUnit) domain.Outcome[domain.ExtractedText] {
	if w.fetcher == nil {
		return extractionFailure(wordAdapterName, unit, fmt.Errorf("fetcher is not configured"))
	}

	data, err := w.fetcher.Fetch(ctx, unit.Source)
	if err != nil {
		return extractionFailure(wordAdapterName, unit, fmt.Errorf("download: %w", err))
	}

	text, err := WordText(data)
	if err != nil {
		return extractionFailure(wordAdapterName, unit, err)
	}
	if strings.TrimSpace(text) == "" {
		return extractionFailure(wordAdapterName, unit, errNoContent)
	}

	return domain.Ok(domain.ExtractedText{
		Text:       text,
		ByteLength: len(data),
		Adapter:    wordAdapterName,
		Confidence: 1,
	})
}

// WordText converts .docx, flat Word XML and HTML-flavoured .doc exports to text.
func WordText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return docxText(data)
	case looksLikeHTML(data):
		return htmlText(data)
	case looksLikeXML(data):
		return wordXMLText(bytes.NewReader(data))
	case bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return "", fmt.Errorf("legacy binary word format is not supported")
	default:
		return "", fmt.Errorf("unrecognised word document encoding")
	}
}

// docxText reads word/document.xml from the archive.
func docxText(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	return wordXMLText(rc)
}

// wordXMLText walks WordprocessingML, keeping <w:t> runs and one line per paragraph.
func wordXMLText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	decoder.Strict = false

	var (
		out       strings.Builder
		paragraph strings.Builder
		inText    bool
		sawBody   bool
	)

	flush := func() {
		line := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if line == "" {
			return
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(line)
	}

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if sawBody {
				break
			}
			return "", fmt.Errorf("decode word xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				sawBody = true
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br", "cr":
				paragraph.WriteByte(' ')
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flush()
			}
		}
	}
	flush()

	return out.String(), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html document: %w", err)
	}
	doc.Find("script, style, head").Remove()

	var lines []string
	doc.Find("p, h1, h2, h3, h4, h5, h6, li, td").Each(func(_ int, s *goquery.Selection) {
		if s.Find("p, li").Length() > 0 {
			return
		}
		if line := collapseSpaces(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return collapseSpaces(doc.Find("body").Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}

func looksLikeHTML(data []byte) bool {
	head := strings.ToLower(string(bytes.TrimSpace(prefix(data, 1024))))
	return strings.HasPrefix(head, "<!doctype html") || strings.Contains(head, "<html")
}

func looksLikeXML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("<?xml")) || bytes.HasPrefix(trimmed, []byte("<w:"))
}

func prefix(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}

func collapseSpaces(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		sb.WriteRune(r)
		prevSpace = false
	}
	return strings.TrimSpace(sb.String())
}
