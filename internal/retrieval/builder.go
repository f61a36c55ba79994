package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// ChunkDocument splits text into fixed-size overlapping windows. Chunks
// are trimmed but keep their positional index so they can be re-sliced
// from the source later.
func ChunkDocument(text string, size, overlap int) []string {
	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, strings.TrimSpace(text[start:end]))
		start = end - overlap
		if start < 0 {
			start = 0
		}
		if end == len(text) {
			break
		}
	}
	return chunks
}

// BuildIndex chunks every document in the docs folder, embeds each chunk,
// and writes the index file. A successful build is immediately loaded.
func (s *Service) BuildIndex(ctx context.Context) (int, error) {
	docEntries, err := os.ReadDir(s.cfg.DocsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents folder: %w", err)
	}

	var entries []Entry
	for _, de := range docEntries {
		if de.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.cfg.DocsDir, de.Name()))
		if err != nil {
			return 0, fmt.Errorf("failed to read document %s: %w", de.Name(), err)
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}

		for i, chunk := range ChunkDocument(content, s.cfg.ChunkSize, s.cfg.Overlap) {
			vec, err := s.embedder.Embed(ctx, s.cfg.EmbedModel, chunk)
			if err != nil {
				return 0, fmt.Errorf("failed to embed chunk %d of %s: %w", i, de.Name(), err)
			}
			entries = append(entries, Entry{Filename: de.Name(), ChunkIdx: i, Vector: vec})
		}
	}

	if len(entries) == 0 {
		return 0, fmt.Errorf("no documents found in %s", s.cfg.DocsDir)
	}

	data, err := json.Marshal(indexFile{Model: s.cfg.EmbedModel, Entries: entries})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.cfg.IndexFile), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create index folder: %w", err)
	}
	if err := os.WriteFile(s.cfg.IndexFile, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write index file: %w", err)
	}

	s.mu.Lock()
	s.entries = entries
	s.model = s.cfg.EmbedModel
	s.loaded = true
	s.mu.Unlock()

	log.Info().Int("chunks", len(entries)).Str("file", s.cfg.IndexFile).Msg("retrieval index built")
	return len(entries), nil
}
