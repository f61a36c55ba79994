package domain

import "time"

// Stage identifies a point in the dataset snapshot lineage.
type Stage string

const (
	StageRaw               Stage = "raw"
	StageProcessed         Stage = "processed"
	StageFeatureEngineered Stage = "feature_engineered"
)

// Valid reports whether the stage is one of the known lifecycle stages.
func (s Stage) Valid() bool {
	switch s {
	case StageRaw, StageProcessed, StageFeatureEngineered:
		return true
	}
	return false
}

// Fallback returns the alternate stage to search when a snapshot is absent
// from the requested stage. Raw and processed fall back to each other;
// feature_engineered has no fallback.
func (s Stage) Fallback() (Stage, bool) {
	switch s {
	case StageProcessed:
		return StageRaw, true
	case StageRaw:
		return StageProcessed, true
	}
	return "", false
}

// Snapshot describes one immutable CSV snapshot of a dataset. Snapshots
// are never mutated in place; a dataset id names one snapshot per stage.
type Snapshot struct {
	ID        string    `json:"id"`
	Stage     Stage     `json:"stage"`
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
}
