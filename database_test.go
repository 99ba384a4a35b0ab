package kgingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/ingestion"
	"github.com/poiesic/kgingest/promote"
	"github.com/poiesic/kgingest/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.EntityRepository())
		assert.NotNil(t, db.RelationshipRepository())
		assert.NotNil(t, db.HistoryRepository())
		assert.NotNil(t, db.RunRepository())
		assert.DirExists(t, tmpDir)
	})

	t.Run("in memory ignores path", func(t *testing.T) {
		db, err := NewDatabase("/does/not/matter", InMemory(), WithLogger(nil))
		require.NoError(t, err)
		defer db.Close()
		assert.NoDirExists(t, "/does/not/matter")
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// A regular file cannot hold a database
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestDatabase_EndToEnd(t *testing.T) {
	db, err := NewDatabase("", InMemory())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "chat.md")
	require.NoError(t, os.WriteFile(path, []byte(
		"# Claude Conversation - 15/01/2024\n\nClaude configured tRPC endpoints yesterday.\n"), 0644))

	pipeline, err := db.NewPipeline(ingestion.WithOwner("owner-1"))
	require.NoError(t, err)
	res, err := pipeline.Ingest(ctx, ingestion.Request{FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, 2, res.EntitiesCreated)
	assert.Equal(t, 1, res.RelationshipsCreated)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	found, err := searcher.Search(ctx, search.Query{Text: "trpc", Owner: "owner-1"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, core.StateRaw, found[0].State)

	promoter, err := db.NewPromoter()
	require.NoError(t, err)
	updated, err := promoter.PromoteEntity(ctx, promote.Request{
		ID:     found[0].Id,
		Target: core.StateCooked,
		Actor:  core.Actor{ID: "fred", Role: core.RoleMember},
	})
	require.NoError(t, err)
	assert.Equal(t, core.StateCooked, updated.State)

	history, err := promoter.History(ctx, core.TargetEntity, found[0].Id)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
