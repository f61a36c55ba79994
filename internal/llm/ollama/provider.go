package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/datapilot/datapilot/internal/llm"
)

// Provider implements llm.Provider for a local Ollama daemon
type Provider struct {
	host   string
	client *http.Client
}

// NewProvider creates a new Ollama provider
func NewProvider(host string) *Provider {
	return &Provider{
		host:   host,
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "ollama"
}

// IsConfigured checks if provider has a host to talk to
func (p *Provider) IsConfigured() bool {
	return p.host != ""
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// IsModelAvailable inspects the locally installed model list. Any error
// talking to the daemon counts as unavailable.
func (p *Provider) IsModelAvailable(ctx context.Context, model string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", p.host+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	needle := strings.ToLower(model)
	for _, m := range tags.Models {
		if strings.Contains(strings.ToLower(m.Name), needle) {
			return true
		}
	}
	return false
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Chat sends a single-turn prompt and maps the wire payload onto a tagged
// llm.Result. A chat-style message becomes StructuredMessage, a bare
// completion field becomes PlainText, anything else Unrecognized.
func (p *Provider) Chat(ctx context.Context, model, prompt string, maxTokens int) (*llm.Result, error) {
	chatReq := chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	if maxTokens > 0 {
		chatReq.Options = map[string]any{"num_predict": maxTokens}
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// The daemon reports failures (including memory insufficiency) in the
	// error field of a non-200 body; surface that text so callers can match
	// on it.
	if resp.StatusCode != http.StatusOK {
		if chatResp.Error != "" {
			return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, chatResp.Error)
		}
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	switch {
	case chatResp.Message.Content != "":
		return &llm.Result{Kind: llm.StructuredMessage, Text: chatResp.Message.Content, Model: model, Raw: string(raw)}, nil
	case chatResp.Response != "":
		return &llm.Result{Kind: llm.PlainText, Text: chatResp.Response, Model: model, Raw: string(raw)}, nil
	default:
		return &llm.Result{Kind: llm.Unrecognized, Model: model, Raw: string(raw)}, nil
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed computes an embedding vector for the given text.
func (p *Provider) Embed(ctx context.Context, model, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return embedResp.Embedding, nil
}
