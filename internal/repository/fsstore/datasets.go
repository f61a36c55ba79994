package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/datapilot/datapilot/internal/dataset"
	"github.com/datapilot/datapilot/internal/domain"
	"github.com/google/uuid"
)

// DatasetStore keeps immutable CSV snapshots under one folder per lifecycle
// stage. A dataset id names at most one snapshot per stage; snapshots are
// never rewritten.
type DatasetStore struct {
	root string
}

// NewDatasetStore creates the stage folders under root.
func NewDatasetStore(root string) (*DatasetStore, error) {
	for _, stage := range []domain.Stage{domain.StageRaw, domain.StageProcessed, domain.StageFeatureEngineered} {
		if err := os.MkdirAll(filepath.Join(root, string(stage)), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create stage folder %s: %w", stage, err)
		}
	}
	return &DatasetStore{root: root}, nil
}

func (s *DatasetStore) path(stage domain.Stage, id string) string {
	return filepath.Join(s.root, string(stage), id+".csv")
}

// Save writes a frame as a new snapshot in the given stage under a fresh
// UUID and returns its metadata.
func (s *DatasetStore) Save(f *dataset.Frame, stage domain.Stage) (*domain.Snapshot, error) {
	return s.SaveAs(f, stage, uuid.New().String())
}

// SaveAs writes a frame as the snapshot for a known dataset id in the
// given stage, so a dataset keeps its identity as it moves through the
// lifecycle. The write goes through a temp file and rename so concurrent
// readers never observe a half-written snapshot.
func (s *DatasetStore) SaveAs(f *dataset.Frame, stage domain.Stage, id string) (*domain.Snapshot, error) {
	if !stage.Valid() {
		return nil, fmt.Errorf("invalid dataset stage: %s", stage)
	}

	final := s.path(stage, id)

	tmp, err := os.CreateTemp(filepath.Dir(final), ".snapshot-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := f.WriteCSV(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to close snapshot file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to finalize snapshot: %w", err)
	}

	return &domain.Snapshot{
		ID:        id,
		Stage:     stage,
		Path:      final,
		Rows:      f.NumRows(),
		Columns:   f.NumCols(),
		CreatedAt: time.Now(),
	}, nil
}

// Resolve maps (dataset id, requested stage) to a snapshot path. If the
// snapshot is absent from the requested stage, raw and processed fall back
// to each other; feature_engineered has no fallback.
func (s *DatasetStore) Resolve(id string, stage domain.Stage) (string, domain.Stage, error) {
	if !stage.Valid() {
		return "", "", fmt.Errorf("invalid dataset stage: %s", stage)
	}

	p := s.path(stage, id)
	if _, err := os.Stat(p); err == nil {
		return p, stage, nil
	}

	if alt, ok := stage.Fallback(); ok {
		altPath := s.path(alt, id)
		if _, err := os.Stat(altPath); err == nil {
			return altPath, alt, nil
		}
	}

	return "", "", &domain.DatasetNotFoundError{DatasetID: id, Stage: stage}
}

// Load resolves and reads a snapshot into a Frame.
func (s *DatasetStore) Load(id string, stage domain.Stage) (*dataset.Frame, error) {
	p, _, err := s.Resolve(id, stage)
	if err != nil {
		return nil, err
	}
	return dataset.Load(p)
}
