package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGetRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "baseline", map[string]any{
		"lr":     0.01,
		"epochs": float64(10),
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, err := store.GetRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "baseline", run.Name)
	assert.Equal(t, 0.01, run.Params["lr"])
	assert.Equal(t, float64(10), run.Params["epochs"])
	assert.False(t, run.CreatedAt.IsZero())
}

func TestGetRunNotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.CreateRun(ctx, "first", nil)
	require.NoError(t, err)
	second, err := store.CreateRun(ctx, "second", nil)
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	got := []string{runs[0].ID, runs[1].ID}
	assert.Contains(t, got, first)
	assert.Contains(t, got, second)
}

func TestRecordAndReadScalars(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "run", nil)
	require.NoError(t, err)

	require.NoError(t, store.RecordScalar(ctx, id, "train:loss", 1, 1, 0.9))
	require.NoError(t, store.RecordScalar(ctx, id, "train:loss", 2, 1, 0.7))
	require.NoError(t, store.RecordScalar(ctx, id, "train:loss", 3, 2, 0.4))
	require.NoError(t, store.RecordScalar(ctx, id, "val:accuracy", 3, 2, 0.85))

	scalars, err := store.Scalars(ctx, id, "train:loss")
	require.NoError(t, err)
	require.Len(t, scalars, 3)
	assert.Equal(t, int64(1), scalars[0].Step)
	assert.Equal(t, 0.9, scalars[0].Value)
	assert.Equal(t, int64(3), scalars[2].Step)
	assert.Equal(t, int64(2), scalars[2].Epoch)
	assert.Equal(t, 0.4, scalars[2].Value)

	tags, err := store.Tags(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"train:loss", "val:accuracy"}, tags)
}

func TestLastStep(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "run", nil)
	require.NoError(t, err)

	step, err := store.LastStep(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), step)

	require.NoError(t, store.RecordScalar(ctx, id, "train:loss", 4, 1, 0.5))
	require.NoError(t, store.RecordScalar(ctx, id, "val:accuracy", 9, 2, 0.8))

	step, err = store.LastStep(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(9), step)
}

func TestScalarsEmptyRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "empty", nil)
	require.NoError(t, err)

	scalars, err := store.Scalars(ctx, id, "train:loss")
	require.NoError(t, err)
	assert.Empty(t, scalars)
}
