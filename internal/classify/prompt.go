package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"DocumentClassifier/internal/domain"
	"DocumentClassifier/internal/ports"
)

// maxPromptRunes bounds the document text embedded in one prompt.
const maxPromptRunes = 60000

const classifySystemPrompt = `You analyse internal organisational documents and return JSON only.

Extract:
- actionPoints: concrete actions the readers must take, one short imperative sentence each. Empty list when there are none.
- Write every action point in English, translating it when the document is in another language.
- department: the single department that owns the document. Use exactly one of the allowed department names.
- priority: one of "high", "medium", "low".
- crossDepartment: other departments that should also see the document, each with a relevance score between 0 and 1, a one-line reason and a few tags, plus coordinationRequired when several departments must act together.

Priority rules:
- HIGH: urgent language, safety incidents or hazards, or a regulatory or compliance deadline within 7 days (for example "immediately", "within 24 hours", "by end of week").
- MEDIUM: timelines between 7 and 30 days, or announcements that require coordination between teams.
- LOW: purely informational content with no deadline.

Cross-department rules:
- Only list departments with relevance of at least %.1f.
- Never list the owning department as a cross-department entry.
- Only use department names from the allowed list.`

const summarySystemPrompt = `You write short summaries of internal organisational documents.
Return JSON with a single field "summary": at most three sentences, in English, stating what the document is about and what readers must do.`

var classificationSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "actionPoints": {"type": "array", "items": {"type": "string"}},
    "department": {"type": "string"},
    "priority": {"type": "string", "enum": ["low", "medium", "high"]},
    "crossDepartment": {
      "type": "object",
      "properties": {
        "departments": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "name": {"type": "string"},
              "relevance": {"type": "number", "minimum": 0, "maximum": 1},
              "reason": {"type": "string"},
              "tags": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["name", "relevance", "reason"]
          }
        },
        "coordinationRequired": {"type": "boolean"}
      },
      "required": ["departments", "coordinationRequired"]
    }
  },
  "required": ["actionPoints", "department", "priority", "crossDepartment"]
}`)

var summarySchema = json.RawMessage(`{
  "type": "object",
  "properties": {"summary": {"type": "string"}},
  "required": ["summary"]
}`)

// ClassificationSchema returns the JSON schema classification results follow.
func ClassificationSchema() json.RawMessage {
	return classificationSchema
}

func systemPrompt() string {
	return fmt.Sprintf(classifySystemPrompt, domain.MinRelevance)
}

// buildRequest renders the classification request for one input variant.
func buildRequest(in Input, title string, departments []domain.Department) ports.GenerationRequest {
	var b strings.Builder
	b.WriteString("Allowed departments:\n")
	for _, d := range departments {
		fmt.Fprintf(&b, "- %s\n", departmentLabel(d))
	}
	if len(departments) == 0 {
		b.WriteString("- (any department name)\n")
	}
	b.WriteString("\n")

	req := documentRequest(in, title)
	req.System = systemPrompt()
	req.Schema = classificationSchema
	req.Prompt = b.String() + req.Prompt
	return req
}

func buildSummaryRequest(in Input, title string) ports.GenerationRequest {
	req := documentRequest(in, title)
	req.Variant = ports.VariantSummarize
	req.System = summarySystemPrompt
	req.Schema = summarySchema
	return req
}

// documentRequest describes the document itself; callers add instructions.
func documentRequest(in Input, title string) ports.GenerationRequest {
	var (
		b   strings.Builder
		req ports.GenerationRequest
	)
	if title = strings.TrimSpace(title); title != "" {
		fmt.Fprintf(&b, "Document title: %s\n", title)
	}

	switch v := in.(type) {
	case SourceInput:
		req.Variant = ports.VariantClassifySource
		src := v.Source
		req.Source = &src
		req.MimeType = v.MimeType
		if v.FileName != "" {
			fmt.Fprintf(&b, "File name: %s\n", v.FileName)
		}
		b.WriteString("\nThe document is attached.\n")
	case TranslatedInput:
		req.Variant = ports.VariantClassifyTranslated
		fmt.Fprintf(&b, "Original language: %s (the text below was machine-translated to English)\n", v.Language)
		fmt.Fprintf(&b, "\nDocument text:\n%s\n", truncate(v.Text))
	case PlainTextInput:
		req.Variant = ports.VariantClassifyText
		fmt.Fprintf(&b, "\nDocument text:\n%s\n", truncate(v.Text))
	}

	req.Prompt = b.String()
	return req
}

func departmentLabel(d domain.Department) string {
	if d.Name == "" || strings.EqualFold(d.Name, d.ID) {
		return d.ID
	}
	return d.Name
}

func truncate(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= maxPromptRunes {
		return text
	}
	return string(r[:maxPromptRunes]) + "\n[truncated]"
}
