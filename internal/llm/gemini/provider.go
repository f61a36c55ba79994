package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/datapilot/datapilot/internal/config"
	"github.com/datapilot/datapilot/internal/llm"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Provider implements llm.Provider for the Gemini API. It is an alternate
// insight backend selected by llm.default_provider.
type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

// IsModelAvailable lists the remote models and matches by name suffix.
func (p *Provider) IsModelAvailable(ctx context.Context, model string) bool {
	if !p.IsConfigured() {
		return false
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return false
	}
	defer client.Close()

	it := client.ListModels(ctx)
	for {
		info, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return false
		}
		if strings.HasSuffix(info.Name, model) {
			return true
		}
	}
	return false
}

func (p *Provider) Chat(ctx context.Context, model, prompt string, maxTokens int) (*llm.Result, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	if model == "" {
		model = p.model
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	if maxTokens > 0 {
		tokens := int32(maxTokens)
		generativeModel.MaxOutputTokens = &tokens
	}

	resp, err := generativeModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return &llm.Result{Kind: llm.Unrecognized, Model: model, Raw: "empty candidate list"}, nil
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}
	if output == "" {
		return &llm.Result{Kind: llm.Unrecognized, Model: model, Raw: "no text parts in candidate"}, nil
	}

	return &llm.Result{Kind: llm.StructuredMessage, Text: output, Model: model}, nil
}
