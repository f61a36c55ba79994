package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/datapilot/datapilot/internal/domain"
	_ "modernc.org/sqlite"
)

// Catalog records snapshot lineage in a local SQLite database so the
// snapshot folders stay browsable by id. It is best-effort metadata: the
// pipeline never fails because a catalog write failed.
type Catalog struct {
	db *sql.DB
}

// Open connects to the catalog database.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Ping verifies the catalog is reachable.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Record inserts one snapshot row.
func (c *Catalog) Record(ctx context.Context, snap *domain.Snapshot, parentID string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, stage, path, rows, columns, parent_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, string(snap.Stage), snap.Path, snap.Rows, snap.Columns,
		sql.NullString{String: parentID, Valid: parentID != ""}, snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	return nil
}

// List returns the most recent snapshots, newest first.
func (c *Catalog) List(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, stage, path, rows, columns, created_at
		FROM snapshots ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		var stage string
		if err := rows.Scan(&s.ID, &stage, &s.Path, &s.Rows, &s.Columns, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		s.Stage = domain.Stage(stage)
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

// Lineage returns every stage snapshot recorded for a dataset id, in
// stage order, followed by the snapshots of its parent dataset when one
// is linked.
func (c *Catalog) Lineage(ctx context.Context, id string) ([]domain.Snapshot, error) {
	var chain []domain.Snapshot
	current := id
	for current != "" && len(chain) < 16 {
		rows, err := c.db.QueryContext(ctx, `
			SELECT id, stage, path, rows, columns, parent_id, created_at
			FROM snapshots WHERE id = ? ORDER BY created_at`, current)
		if err != nil {
			return nil, fmt.Errorf("failed to query snapshots for %s: %w", current, err)
		}

		parentID := ""
		found := false
		for rows.Next() {
			var s domain.Snapshot
			var stage string
			var parent sql.NullString
			if err := rows.Scan(&s.ID, &stage, &s.Path, &s.Rows, &s.Columns, &parent, &s.CreatedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan snapshot: %w", err)
			}
			s.Stage = domain.Stage(stage)
			chain = append(chain, s)
			found = true
			if parent.Valid && parent.String != current {
				parentID = parent.String
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		if !found {
			break
		}
		current = parentID
	}
	return chain, nil
}
