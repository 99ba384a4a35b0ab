package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/kgingest"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/ingestion"
	"github.com/poiesic/kgingest/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

func TestNamesByCategory(t *testing.T) {
	names := namesByCategory(vocab.Default())
	assert.Contains(t, names[core.CategoryAgents], "Claude")
	assert.Contains(t, names[core.CategoryTechnology], "Neo4j")
	assert.Contains(t, names[core.CategoryExecutiveAI], "Knowledge Lake")
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a := newGenerator(vocab.Default(), sentences, 7)
	b := newGenerator(vocab.Default(), sentences, 7)
	assert.Equal(t, a.conversation(day), b.conversation(day))

	text := a.conversation(day)
	assert.True(t, strings.HasPrefix(text, "# Claude Conversation - 05/03/2024\n"))
	assert.Contains(t, text, "User: ")
}

func TestLinesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\n\n  two  \n"), 0644))

	lines, err := linesFromFile(path)
	require.NoError(t, err)
	var got []string
	for line := range lines {
		got = append(got, line)
	}
	assert.Equal(t, []string{"one", "two"}, got)

	_, err = linesFromFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestGeneratedConversationsIngest(t *testing.T) {
	g := newGenerator(vocab.Default(), sentences, 1)
	paths, err := writeConversations(g, t.TempDir(), 5, day)
	require.NoError(t, err)
	require.Len(t, paths, 5)

	db, err := kgingest.NewDatabase("", kgingest.InMemory())
	require.NoError(t, err)
	defer db.Close()

	pipeline, err := db.NewPipeline()
	require.NoError(t, err)
	batch, err := ingestion.NewBatch(pipeline, ingestion.WithConcurrency(2))
	require.NoError(t, err)

	summary, err := batch.Run(context.Background(), paths, ingestion.Request{})
	require.NoError(t, err)
	assert.Equal(t, 5, summary.Succeeded)
	assert.Zero(t, summary.Failed)
	assert.Positive(t, summary.EntitiesCreated)
	assert.Positive(t, summary.RelationshipsCreated)
}
