package ingestion

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportedSheet = "Date,Agent,Topic,Prompt,Response,Priority,Project,Tags,Ingested\n" +
	"2024-11-15,Claude,Graph store,Should Fred use Neo4j?,\"Yes, Neo4j integrates with Next.js for the dashboard.\",High,AAE Dashboard,graph,No\n" +
	"2024-11-15,Claude,Graph store,What about Penny?,Penny coordinated the rollout.,High,AAE Dashboard,graph,\n" +
	"2024-11-16,Claude,Old,Done already,ok,,,,Yes\n" +
	"2024-11-17,Gemini,Empty,,missing prompt,,,,\n"

func readSheet(t *testing.T, content string) *Sheet {
	t.Helper()
	sheet, err := ReadSheet(strings.NewReader(content))
	require.NoError(t, err)
	return sheet
}

func TestReadSheet(t *testing.T) {
	sheet := readSheet(t, exportedSheet)

	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, 2, sheet.Rows[0].Number)
	assert.Equal(t, "Yes, Neo4j integrates with Next.js for the dashboard.", sheet.Rows[0].Response)
	assert.Equal(t, "AAE Dashboard", sheet.Rows[1].Project)
	assert.Equal(t, []SkippedRow{
		{Number: 4, Reason: "already ingested"},
		{Number: 5, Reason: "missing required fields"},
	}, sheet.Skipped)

	convs := sheet.Conversations()
	require.Len(t, convs, 1)
	assert.Equal(t, []int{2, 3}, convs[0].Rows)
	assert.Len(t, convs[0].Exchanges, 2)
	assert.Equal(t, "Claude_2024-11-15_Graph store", convs[0].Key())
}

func TestReadSheetErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"missing columns", "Date,Agent,Prompt\n2024-11-15,Claude,hi\n"},
		{"bare quote", "Date,Agent,Topic,Prompt,Response\n2024-11-15,Cla\"ude,Graph,hi,hello\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSheet(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSheet)
		})
	}
}

func TestReadSheetHeaderIsCaseInsensitive(t *testing.T) {
	sheet := readSheet(t, "\ufeff DATE , agent,Topic,PROMPT,Response\n2024-11-15,Claude,Graph,hi,hello\n")
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "2024-11-15", sheet.Rows[0].Date)
}

func TestMarkIngestedAddsColumn(t *testing.T) {
	sheet := readSheet(t, "Date,Agent,Topic,Prompt,Response\n2024-11-15,Claude,Graph,hi,hello\n2024-11-15,Claude,Graph,more,sure\n")
	sheet.MarkIngested(3, 99)

	var buf bytes.Buffer
	require.NoError(t, sheet.Write(&buf))
	assert.Equal(t, "Date,Agent,Topic,Prompt,Response,Ingested\n"+
		"2024-11-15,Claude,Graph,hi,hello\n"+
		"2024-11-15,Claude,Graph,more,sure,Yes\n", buf.String())
}

func TestSheetDate(t *testing.T) {
	tests := map[string]string{
		"2024-11-15": "2024-11-15",
		"15/11/2024": "2024-11-15",
		"5/3/2024":   "2024-03-05",
		"2024/11/15": "2024-11-15",
		"next week":  "next week",
	}
	for in, want := range tests {
		assert.Equal(t, want, sheetDate(in), in)
	}
}

func TestSheetConversationMarkdown(t *testing.T) {
	conv := readSheet(t, exportedSheet).Conversations()[0]
	text := conv.Markdown()

	assert.True(t, strings.HasPrefix(text, "# Conversation with Claude\nAgent: Claude\nDate: 2024-11-15\nTopic: Graph store\n"))
	assert.Contains(t, text, "Priority: High\nProject: AAE Dashboard\nTags: graph\nSource: sheet rows 2, 3\n")
	assert.Contains(t, text, "User: What about Penny?\n\nClaude: Penny coordinated the rollout.\n")
	assert.Equal(t, conv.FileName(), conv.FileName())
	assert.True(t, strings.HasPrefix(conv.FileName(), "Claude_2024_11_15_Graph_store_"))
}

func TestNewSheetImportValidation(t *testing.T) {
	_, err := NewSheetImport(nil, t.TempDir())
	assert.Error(t, err)

	p, _ := newTestPipeline(t)
	_, err = NewSheetImport(p, "")
	assert.Error(t, err)
}

func TestSheetImportRun(t *testing.T) {
	p, store := newTestPipeline(t)
	workDir := filepath.Join(t.TempDir(), "sheet")
	si, err := NewSheetImport(p, workDir)
	require.NoError(t, err)
	ctx := context.Background()

	sheet := readSheet(t, exportedSheet)
	summary, err := si.Run(ctx, sheet, Request{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Empty(t, summary.Ingested, "a dry run marks nothing")
	all, err := store.Entities.GetAllEntities(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	summary, err = si.Run(ctx, sheet, Request{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Rows)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Conversations)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Positive(t, summary.EntitiesCreated)
	assert.Equal(t, []int{2, 3}, summary.Ingested)
	require.Len(t, summary.Results, 1)
	assert.FileExists(t, summary.Results[0].Path)
	assert.Equal(t, "Graph store", summary.Results[0].Result.Metadata.Topic)

	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, sheet.WriteFile(path))
	reread, err := ReadSheetFile(path)
	require.NoError(t, err)
	assert.Empty(t, reread.Rows)
	assert.Len(t, reread.Skipped, 4)

	// The same rows from an unmarked copy map to the same source.
	summary, err = si.Run(ctx, readSheet(t, exportedSheet), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.AlreadyIngested)
	assert.Equal(t, []int{2, 3}, summary.Ingested)
}

func TestSheetImportNothingToDo(t *testing.T) {
	p, _ := newTestPipeline(t)
	workDir := filepath.Join(t.TempDir(), "sheet")
	si, err := NewSheetImport(p, workDir)
	require.NoError(t, err)

	summary, err := si.Run(context.Background(), readSheet(t, "Date,Agent,Topic,Prompt,Response\n"), Request{})
	require.NoError(t, err)
	assert.Zero(t, summary.Conversations)
	_, err = os.Stat(workDir)
	assert.True(t, os.IsNotExist(err))
}
