package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// NoIndexPlaceholder is returned by Search when no index has been loaded.
// Retrieval degrades to this string, never to an error.
const NoIndexPlaceholder = "No retrieval index loaded."

// Embedder computes embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, model, text string) ([]float32, error)
}

// Entry is one indexed chunk: its vector plus enough metadata to re-slice
// the chunk text from the source document.
type Entry struct {
	Filename string    `json:"filename"`
	ChunkIdx int       `json:"chunk_idx"`
	Vector   []float32 `json:"vector"`
}

type indexFile struct {
	Model   string  `json:"model"`
	Entries []Entry `json:"entries"`
}

// Snippet is one retrieved chunk with its resolved text.
type Snippet struct {
	Filename string  `json:"filename"`
	ChunkIdx int     `json:"chunk_idx"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// Config locates the index and documents and fixes the chunking geometry.
type Config struct {
	IndexFile  string
	DocsDir    string
	ChunkSize  int
	Overlap    int
	EmbedModel string
}

// Service answers similarity queries over an embedded document-chunk
// index. It holds no ambient state: construct it, call Load, then Search.
type Service struct {
	cfg      Config
	embedder Embedder

	mu      sync.RWMutex
	entries []Entry
	model   string
	loaded  bool
}

func NewService(cfg Config, embedder Embedder) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 500
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = 100
	}
	return &Service{cfg: cfg, embedder: embedder}
}

// Load reads the index file into memory. A missing index is not an error;
// the service simply stays unloaded and Search degrades to a placeholder.
func (s *Service) Load() error {
	data, err := os.ReadFile(s.cfg.IndexFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("file", s.cfg.IndexFile).Msg("retrieval index not found, search disabled")
			return nil
		}
		return fmt.Errorf("failed to read index file: %w", err)
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("failed to parse index file: %w", err)
	}

	s.mu.Lock()
	s.entries = idx.Entries
	s.model = idx.Model
	s.loaded = len(idx.Entries) > 0
	s.mu.Unlock()

	log.Info().Int("chunks", len(idx.Entries)).Str("file", s.cfg.IndexFile).Msg("retrieval index loaded")
	return nil
}

// Loaded reports whether an index is in memory.
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ChunkCount returns the number of indexed chunks.
func (s *Service) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// chunkOffset computes where a chunk starts in its source document.
func chunkOffset(idx, size, overlap int) int {
	start := idx*size - idx*overlap
	if start < 0 {
		return 0
	}
	return start
}

// chunkText re-slices chunk idx out of a full document.
func chunkText(fullText string, idx, size, overlap int) string {
	start := chunkOffset(idx, size, overlap)
	if start >= len(fullText) {
		return ""
	}
	end := start + size
	if end > len(fullText) {
		end = len(fullText)
	}
	return fullText[start:end]
}

// Search embeds the query, ranks indexed chunks by cosine similarity, and
// resolves the top-k chunk texts. When no index is loaded it returns a
// placeholder context string and no snippets, never an error.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Snippet, string, error) {
	s.mu.RLock()
	entries := s.entries
	embedModel := s.model
	loaded := s.loaded
	s.mu.RUnlock()

	if !loaded {
		return nil, NoIndexPlaceholder, nil
	}
	if topK <= 0 {
		topK = 3
	}
	if embedModel == "" {
		embedModel = s.cfg.EmbedModel
	}

	queryVec, err := s.embedder.Embed(ctx, embedModel, query)
	if err != nil {
		return nil, "", fmt.Errorf("failed to embed query: %w", err)
	}

	type scored struct {
		entry Entry
		score float64
	}
	ranked := make([]scored, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, scored{entry: e, score: cosine(queryVec, e.Vector)})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if topK < len(ranked) {
		ranked = ranked[:topK]
	}

	var snippets []Snippet
	var combined strings.Builder
	for _, r := range ranked {
		path := filepath.Join(s.cfg.DocsDir, r.entry.Filename)
		data, err := os.ReadFile(path)
		if err != nil {
			text := fmt.Sprintf("[File not found: %s]", r.entry.Filename)
			snippets = append(snippets, Snippet{
				Filename: r.entry.Filename,
				ChunkIdx: r.entry.ChunkIdx,
				Text:     text,
				Score:    r.score,
			})
			combined.WriteString(text + "\n\n")
			continue
		}

		text := chunkText(string(data), r.entry.ChunkIdx, s.cfg.ChunkSize, s.cfg.Overlap)
		snippets = append(snippets, Snippet{
			Filename: r.entry.Filename,
			ChunkIdx: r.entry.ChunkIdx,
			Text:     text,
			Score:    r.score,
		})
		fmt.Fprintf(&combined, "Snippet from %s (chunk %d):\n%s\n\n", r.entry.Filename, r.entry.ChunkIdx, text)
	}
	return snippets, combined.String(), nil
}

func cosine(a []float32, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
