package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"DocumentClassifier/internal/config"
	"DocumentClassifier/internal/ports"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// NewModel creates a langchaingo model based on configuration.
func NewModel(cfg config.LLMConfig) (llms.Model, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}
		return model, nil

	case ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return model, nil

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		opts := []anthropic.Option{anthropic.WithToken(cfg.APIKey), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		model, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}
		return model, nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Generator implements ports.Generator on top of a langchaingo model.
type Generator struct {
	model    llms.Model
	fetcher  ports.Fetcher
	jsonMode bool
}

var _ ports.Generator = (*Generator)(nil)

// NewGenerator wraps model; fetcher loads source files the model cannot fetch itself.
func NewGenerator(model llms.Model, fetcher ports.Fetcher, jsonMode bool) *Generator {
	return &Generator{model: model, fetcher: fetcher, jsonMode: jsonMode}
}

// Run sends the prompt, the optional source file and the schema, and returns
// the JSON object found in the reply. A reply without one is "no result".
func (g *Generator) Run(ctx context.Context, req ports.GenerationRequest) (json.RawMessage, error) {
	if g == nil || g.model == nil {
		return nil, fmt.Errorf("llm generator is not configured")
	}

	human, err := g.humanParts(ctx, req)
	if err != nil {
		return nil, err
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, req.System),
		{Role: schema.ChatMessageTypeHuman, Parts: human},
	}

	opts := []llms.CallOption{llms.WithTemperature(0)}
	if g.jsonMode {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := g.model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", req.Variant, err)
	}
	if response == nil || len(response.Choices) == 0 {
		return nil, nil
	}

	raw := ExtractJSON(response.Choices[0].Content)
	if raw == nil {
		return nil, nil
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("generate %s: reply is not valid JSON", req.Variant)
	}
	return raw, nil
}

func (g *Generator) humanParts(ctx context.Context, req ports.GenerationRequest) ([]llms.ContentPart, error) {
	prompt := req.Prompt
	if len(req.Schema) > 0 {
		prompt += "\nRespond with a single JSON object matching this schema:\n" + string(req.Schema)
	}
	parts := []llms.ContentPart{llms.TextPart(prompt)}

	if req.Source == nil || req.Source.Empty() {
		return parts, nil
	}

	if len(req.Source.Data) == 0 && strings.HasPrefix(strings.ToLower(req.MimeType), "image/") {
		return append(parts, llms.ImageURLPart(req.Source.URL)), nil
	}

	data := req.Source.Data
	if len(data) == 0 {
		if g.fetcher == nil {
			return nil, fmt.Errorf("fetch source: fetcher is not configured")
		}
		var err error
		data, err = g.fetcher.Fetch(ctx, *req.Source)
		if err != nil {
			return nil, fmt.Errorf("fetch source: %w", err)
		}
	}

	mimeType := req.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return append(parts, llms.BinaryPart(mimeType, data)), nil
}

// ExtractJSON returns the outermost JSON object in a model reply, tolerating
// code fences and surrounding prose. It returns nil when there is none.
func ExtractJSON(reply string) json.RawMessage {
	b := []byte(strings.TrimSpace(reply))
	start := bytes.IndexByte(b, '{')
	end := bytes.LastIndexByte(b, '}')
	if start < 0 || end <= start {
		return nil
	}
	return json.RawMessage(b[start : end+1])
}
