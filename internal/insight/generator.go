package insight

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/llm"
	"github.com/rs/zerolog/log"
)

// AvailableModels is the allow-list of requestable model choices.
var AvailableModels = []string{"mistral", "gemma2", "llama3.3", "llama2", "gpt-4"}

const truncationMarker = "\n\n[TRUNCATED FOR LENGTH]\n"

const cotInstruction = "Also, please include your chain-of-thought in a section labeled 'Chain-of-Thought'. "

// Cache is the insight cache contract; both the filesystem and redis
// backends satisfy it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, insights string) error
	Delete(ctx context.Context, key string) error
}

// Options describe one generation request.
type Options struct {
	EDASummary      string
	ModelSummary    string
	ModelChoice     string
	Provider        string
	ChunkThreshold  int
	MaxTokens       int
	ForceRegenerate bool
	ClearCache      bool
	EnableCoT       bool
}

// Output is the generation result with its provenance.
type Output struct {
	Insights  string `json:"insights"`
	ModelUsed string `json:"model_used"`
	FromCache bool   `json:"from_cache"`
	Truncated bool   `json:"truncated"`
}

// Generator builds prompts from EDA and training summaries, caches
// generated insights, and falls back to a lightweight model when a heavy
// one cannot serve.
type Generator struct {
	registry       *llm.Registry
	cache          Cache
	fallbackModel  string
	chunkThreshold int
	maxTokens      int
}

func NewGenerator(registry *llm.Registry, cache Cache, fallbackModel string, chunkThreshold, maxTokens int) *Generator {
	if fallbackModel == "" {
		fallbackModel = "mistral"
	}
	if chunkThreshold <= 0 {
		chunkThreshold = 1500
	}
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Generator{
		registry:       registry,
		cache:          cache,
		fallbackModel:  fallbackModel,
		chunkThreshold: chunkThreshold,
		maxTokens:      maxTokens,
	}
}

// CacheKey derives the cache key for a model choice and prompt. The key is
// always computed from the originally requested model, even when the call
// later falls back to another one.
func CacheKey(modelChoice, prompt string) string {
	sum := md5.Sum([]byte(modelChoice + ":" + prompt))
	return hex.EncodeToString(sum[:])
}

// BuildPrompt assembles the instructional prompt. The combined summary is
// hard-truncated at the chunk threshold; there is no semantic-aware
// chunking.
func BuildPrompt(edaSummary, modelSummary string, chunkThreshold int, enableCoT bool) (string, bool) {
	combined := fmt.Sprintf("EDA Summary:\n%s\n\nModel Training Summary:\n%s\n\n", edaSummary, modelSummary)
	truncated := false
	if len(combined) > chunkThreshold {
		combined = combined[:chunkThreshold] + truncationMarker
		truncated = true
	}

	cot := ""
	if enableCoT {
		cot = cotInstruction
	}

	prompt := "You are an AI assistant with context from an Exploratory Data Analysis (EDA) and a Model Training Summary. " +
		"Use the information provided below to create structured, actionable insights in bullet points.\n\n" +
		combined +
		"Outline:\n1) General Insights\n2) Model Performance\n3) Recommendations\n" +
		cot +
		"Think step by step."
	return prompt, truncated
}

// Generate produces insights for the given summaries. Cached entries with
// non-empty content short-circuit generation; empty generated text is
// returned but never cached.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Output, error) {
	if !validModel(opts.ModelChoice) {
		return nil, &domain.InvalidModelError{Model: opts.ModelChoice, Allowed: AvailableModels}
	}

	provider, err := g.registry.Get(opts.Provider)
	if err != nil {
		return nil, err
	}
	if !provider.IsModelAvailable(ctx, opts.ModelChoice) {
		return nil, &domain.ModelUnavailableError{Model: opts.ModelChoice, Provider: provider.Name()}
	}

	threshold := opts.ChunkThreshold
	if threshold <= 0 {
		threshold = g.chunkThreshold
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	prompt, truncated := BuildPrompt(opts.EDASummary, opts.ModelSummary, threshold, opts.EnableCoT)
	if truncated {
		log.Info().Int("threshold", threshold).Msg("combined summary exceeds threshold, truncating")
	}
	key := CacheKey(opts.ModelChoice, prompt)

	if opts.ForceRegenerate || opts.ClearCache {
		if err := g.cache.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to clear cache entry")
		}
	}
	if !opts.ForceRegenerate {
		cached, err := g.cache.Get(ctx, key)
		if err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to read cache entry")
		} else if cached != "" {
			log.Info().Str("key", key).Msg("using cached insights")
			return &Output{Insights: cached, ModelUsed: opts.ModelChoice, FromCache: true, Truncated: truncated}, nil
		}
	}

	result, modelUsed, err := g.chatWithFallback(ctx, provider, opts.ModelChoice, prompt, maxTokens)
	if err != nil {
		return nil, err
	}

	insights, err := normalize(result)
	if err != nil {
		return nil, err
	}

	if insights != "" {
		// The key was derived from the requested model before any fallback,
		// so a fallback response lands under the original model's key.
		if err := g.cache.Set(ctx, key, insights); err != nil {
			log.Error().Err(err).Str("key", key).Msg("failed to write cache entry")
		}
	} else {
		log.Warn().Str("model", modelUsed).Msg("model returned empty insights, not caching")
	}

	return &Output{Insights: insights, ModelUsed: modelUsed, Truncated: truncated}, nil
}

// chatWithFallback retries once against the lightweight fallback model
// when the requested model reports memory pressure, or when the heaviest
// tier fails for any reason. Other failures propagate without retry.
func (g *Generator) chatWithFallback(ctx context.Context, provider llm.Provider, model, prompt string, maxTokens int) (*llm.Result, string, error) {
	result, err := provider.Chat(ctx, model, prompt, maxTokens)
	if err == nil {
		return result, model, nil
	}

	switch {
	case strings.Contains(err.Error(), "requires more system memory"):
		log.Warn().Str("model", model).Str("fallback", g.fallbackModel).Msg("model requires more memory, falling back")
	case strings.EqualFold(model, "gpt-4"):
		log.Warn().Str("fallback", g.fallbackModel).Msg("gpt-4 call failed, falling back")
	default:
		return nil, "", &domain.GenerationError{Model: model, Err: err}
	}

	result, fallbackErr := provider.Chat(ctx, g.fallbackModel, prompt, maxTokens)
	if fallbackErr != nil {
		log.Error().Err(fallbackErr).Str("fallback", g.fallbackModel).Msg("fallback model also failed")
		return nil, "", &domain.GenerationError{Model: g.fallbackModel, Err: fallbackErr}
	}
	return result, g.fallbackModel, nil
}

// normalize turns a tagged backend result into cleaned plain text.
func normalize(result *llm.Result) (string, error) {
	switch result.Kind {
	case llm.PlainText, llm.StructuredMessage:
		return llm.CleanResponse(result.Text), nil
	default:
		return "", &domain.UnexpectedResponseError{Detail: result.Raw}
	}
}

func validModel(model string) bool {
	for _, m := range AvailableModels {
		if m == model {
			return true
		}
	}
	return false
}
