package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/datapilot/datapilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	cat, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	schema, err := os.ReadFile("../../../migrations/0001_create_snapshots.up.sql")
	require.NoError(t, err)
	_, err = cat.db.Exec(string(schema))
	require.NoError(t, err)

	return cat
}

func snap(id string, stage domain.Stage, at time.Time) *domain.Snapshot {
	return &domain.Snapshot{
		ID:        id,
		Stage:     stage,
		Path:      "/data/" + id + ".csv",
		Rows:      10,
		Columns:   3,
		CreatedAt: at,
	}
}

func TestCatalogPing(t *testing.T) {
	cat := openTestCatalog(t)
	assert.NoError(t, cat.Ping(context.Background()))
}

func TestCatalogRecordAndList(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, cat.Record(ctx, snap("ds-1", domain.StageRaw, now), ""))
	require.NoError(t, cat.Record(ctx, snap("ds-2", domain.StageRaw, now.Add(time.Second)), ""))

	snaps, err := cat.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	// Newest first.
	assert.Equal(t, "ds-2", snaps[0].ID)
	assert.Equal(t, "ds-1", snaps[1].ID)
}

func TestCatalogListHonorsLimit(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, cat.Record(ctx, snap(id, domain.StageRaw, now.Add(time.Duration(i)*time.Second)), ""))
	}

	snaps, err := cat.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, snaps, 2)
}

func TestCatalogRecordsOneRowPerStage(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, cat.Record(ctx, snap("ds-1", domain.StageRaw, now), ""))
	require.NoError(t, cat.Record(ctx, snap("ds-1", domain.StageProcessed, now.Add(time.Second)), ""))

	// The same id cannot appear twice in one stage.
	err := cat.Record(ctx, snap("ds-1", domain.StageRaw, now.Add(2*time.Second)), "")
	assert.Error(t, err)
}

func TestCatalogLineageFollowsStagesAndParents(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, cat.Record(ctx, snap("parent", domain.StageRaw, now), ""))
	require.NoError(t, cat.Record(ctx, snap("child", domain.StageRaw, now.Add(time.Second)), "parent"))
	require.NoError(t, cat.Record(ctx, snap("child", domain.StageProcessed, now.Add(2*time.Second)), "parent"))

	chain, err := cat.Lineage(ctx, "child")
	require.NoError(t, err)
	require.Len(t, chain, 3)
	assert.Equal(t, "child", chain[0].ID)
	assert.Equal(t, domain.StageRaw, chain[0].Stage)
	assert.Equal(t, "child", chain[1].ID)
	assert.Equal(t, domain.StageProcessed, chain[1].Stage)
	assert.Equal(t, "parent", chain[2].ID)
}

func TestCatalogLineageUnknownID(t *testing.T) {
	cat := openTestCatalog(t)

	chain, err := cat.Lineage(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, chain)
}
