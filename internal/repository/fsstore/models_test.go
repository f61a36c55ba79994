package fsstore_test

import (
	"fmt"
	"testing"

	"github.com/datapilot/datapilot/internal/domain"
	"github.com/datapilot/datapilot/internal/repository/fsstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArtifact() *domain.Artifact {
	return &domain.Artifact{
		ModelName:       "LinearRegression",
		TaskType:        "regression",
		TargetColumn:    "y",
		TrainingColumns: []string{"x1", "x2"},
		EstimatorKind:   "LinearRegression",
		Estimator:       []byte(`{"intercept":1,"coefficients":[2,3]}`),
		TrainedAt:       1700000000,
	}
}

func TestModelSaveAndLoad(t *testing.T) {
	repo, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)

	name, err := repo.Save(testArtifact(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, "LinearRegression_1700000000.json", name)

	loaded, err := repo.Load(name, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "LinearRegression", loaded.ModelName)
	assert.Equal(t, []string{"x1", "x2"}, loaded.TrainingColumns)
	assert.Equal(t, "y", loaded.TargetColumn)
}

func TestModelLoadMissingFile(t *testing.T) {
	repo, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Load("nope.json", "session-1")
	var notFound *domain.ModelNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope.json", notFound.ModelFile)
}

func TestModelLoadIsSessionScoped(t *testing.T) {
	repo, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)

	name, err := repo.Save(testArtifact(), "session-1")
	require.NoError(t, err)

	_, err = repo.Load(name, "session-2")
	var notFound *domain.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestModelList(t *testing.T) {
	repo, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)

	files, err := repo.List("empty-session")
	require.NoError(t, err)
	assert.Empty(t, files)

	for i, model := range []string{"RandomForestRegressor", "LinearRegression"} {
		a := testArtifact()
		a.ModelName = model
		a.TrainedAt = int64(1700000000 + i)
		_, err := repo.Save(a, "session-1")
		require.NoError(t, err)
	}

	files, err = repo.List("session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"LinearRegression_1700000001.json",
		"RandomForestRegressor_1700000000.json",
	}, files)
}

func TestResetIsIrreversible(t *testing.T) {
	repo, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)

	name, err := repo.Save(testArtifact(), "session-1")
	require.NoError(t, err)

	newSession, err := repo.Reset()
	require.NoError(t, err)
	assert.NotEmpty(t, newSession)
	assert.NotEqual(t, "session-1", newSession)

	// The old session's artifacts are gone for good.
	_, err = repo.Load(name, "session-1")
	var notFound *domain.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)

	files, err := repo.List(newSession)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestResetMintsDistinctSessions(t *testing.T) {
	repo, err := fsstore.NewModelRepository(t.TempDir())
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		id, err := repo.Reset()
		require.NoError(t, err, fmt.Sprintf("reset %d", i))
		assert.False(t, seen[id])
		seen[id] = true
	}
}
