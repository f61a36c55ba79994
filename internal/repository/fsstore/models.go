package fsstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/datapilot/datapilot/internal/domain"
	"github.com/google/uuid"
)

// ModelRepository stores serialized trained estimators under a per-session
// directory, named {model_name}_{unix_timestamp}.json.
type ModelRepository struct {
	root string
}

func NewModelRepository(root string) (*ModelRepository, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create models folder: %w", err)
	}
	return &ModelRepository{root: root}, nil
}

func (r *ModelRepository) dir(sessionID string) string {
	if sessionID == "" {
		return r.root
	}
	return filepath.Join(r.root, sessionID)
}

// Save serializes an artifact and returns the file name it was stored
// under. Differently-timestamped files never collide across concurrent
// writers.
func (r *ModelRepository) Save(artifact *domain.Artifact, sessionID string) (string, error) {
	dir := r.dir(sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create session folder: %w", err)
	}

	if artifact.TrainedAt == 0 {
		artifact.TrainedAt = time.Now().Unix()
	}
	name := fmt.Sprintf("%s_%d.json", artifact.ModelName, artifact.TrainedAt)

	data, err := json.Marshal(artifact)
	if err != nil {
		return "", fmt.Errorf("failed to marshal artifact: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	return name, nil
}

// Load reads an artifact by file name. A missing file fails with
// ModelNotFoundError.
func (r *ModelRepository) Load(modelFile, sessionID string) (*domain.Artifact, error) {
	dir := r.dir(sessionID)
	path := filepath.Join(dir, modelFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.ModelNotFoundError{ModelFile: modelFile, Dir: dir}
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var artifact domain.Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact %s: %w", modelFile, err)
	}
	return &artifact, nil
}

// List returns the artifact file names in a session folder, sorted.
func (r *ModelRepository) List(sessionID string) ([]string, error) {
	entries, err := os.ReadDir(r.dir(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Reset irreversibly deletes the whole model tree and mints a new session
// id with an empty folder.
func (r *ModelRepository) Reset() (string, error) {
	if err := os.RemoveAll(r.root); err != nil {
		return "", fmt.Errorf("failed to remove model folder: %w", err)
	}

	sessionID := uuid.New().String()
	if err := os.MkdirAll(filepath.Join(r.root, sessionID), 0o755); err != nil {
		return "", fmt.Errorf("failed to create session folder: %w", err)
	}
	return sessionID, nil
}
