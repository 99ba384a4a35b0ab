package badger

import (
	"context"
	"testing"

	"github.com/poiesic/kgingest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.Runs.LoadRun(ctx, "a.md")
	require.NoError(t, err)
	assert.Nil(t, run)

	require.NoError(t, store.Runs.SaveRun(ctx, &core.SourceRun{
		SourceID: "b.md", RunID: "r1", ContentHash: "aa", EntitiesCreated: 3,
	}))
	require.NoError(t, store.Runs.SaveRun(ctx, &core.SourceRun{
		SourceID: "a.md", RunID: "r2", ContentHash: "bb", EntitiesCreated: 1, RelationshipsCreated: 2,
	}))

	run, err = store.Runs.LoadRun(ctx, "a.md")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "r2", run.RunID)
	assert.Equal(t, 2, run.RelationshipsCreated)
	assert.False(t, run.CompletedAt.IsZero())

	runs, err := store.Runs.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "a.md", runs[0].SourceID)
	assert.Equal(t, "b.md", runs[1].SourceID)

	require.NoError(t, store.Runs.DeleteRun(ctx, "a.md"))
	run, err = store.Runs.LoadRun(ctx, "a.md")
	require.NoError(t, err)
	assert.Nil(t, run)
}
