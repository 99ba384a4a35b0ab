package conversation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const monthlyDump = "Claude monthly dump, November 2024\n" +
	"\n" +
	"===\n" +
	"Conversation started: 2024-11-03\n" +
	"Topic: Knowledge graph schema\n" +
	"user: How should entities link?\n" +
	"claude: Fred suggested a relationships table.\n" +
	"---\n" +
	"user: Can we deploy the worker on Cloudflare this week?\n" +
	"claude: Yes.\n" +
	"***\n" +
	"\n" +
	"=====\n" +
	"no dates here\n" +
	"user: hi"

func TestSplitDump(t *testing.T) {
	entries := newTestParser(t).Split("Claude", "Claude_2024-11.md", []byte(monthlyDump))
	require.Len(t, entries, 3, "preamble and empty sections are dropped")

	first := entries[0]
	assert.Equal(t, "Claude", first.Agent)
	assert.Equal(t, time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC), first.Date)
	assert.False(t, first.DateFallback)
	assert.Equal(t, "Knowledge graph schema", first.Topic)
	assert.Equal(t, []string{"Claude", "Fred"}, first.Participants)
	assert.Equal(t, 4, first.StartLine)
	assert.Equal(t, 7, first.EndLine)
	assert.True(t, strings.HasPrefix(first.Content, "Conversation started: 2024-11-03"))

	second := entries[1]
	assert.True(t, second.DateFallback)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), second.Date)
	assert.Equal(t, "Can we deploy the worker on Cloudflare this week?", second.Topic)
	assert.Equal(t, 9, second.StartLine)
	assert.Equal(t, 10, second.EndLine)

	third := entries[2]
	assert.Equal(t, "hi", third.Topic)
	assert.Equal(t, 14, third.StartLine)
	assert.Equal(t, 15, third.EndLine)
}

func TestSplitWithoutSeparators(t *testing.T) {
	entries := newTestParser(t).Split("Claude", "flat.md", []byte("user: hello\nclaude: hi"))
	assert.Empty(t, entries)
}

func TestDumpEntryTopic(t *testing.T) {
	long := strings.Repeat("word ", 12)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"topic line", "Subject: Drizzle migration\nuser: hi", "Drizzle migration"},
		{"reply prefix", "Re: Deploy plan", "Deploy plan"},
		{"no match inside words", "these are: notes\nuser: first question", "first question"},
		{"long user turn", "user: " + long, long[:47] + "..."},
		{"nothing", "just text", DefaultDumpTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dumpEntryTopic(tt.body))
		})
	}
}

func TestDumpEntryDateSkipsInvalidDates(t *testing.T) {
	date, ok := dumpEntryDate("Date: 2024-13-01\nrevisited on 2024-02-30 and 2024-02-10")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), date)

	_, ok = dumpEntryDate("no date")
	assert.False(t, ok)
}

func TestSplitFileRendersParseableConversations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Claude_2024-11.md")
	require.NoError(t, os.WriteFile(path, []byte(monthlyDump), 0644))

	p := newTestParser(t)
	entries, err := p.SplitFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first := entries[0]
	assert.Equal(t, "Claude_2024-11.md", first.Source)
	assert.Equal(t, "Claude_20241103_Knowledgegraphschema_1.md", first.FileName(1))

	text := first.Markdown()
	assert.Contains(t, text, "Source: Claude_2024-11.md (lines 4-7)")

	conv, err := p.Parse(first.FileName(1), []byte(text))
	require.NoError(t, err)
	assert.Equal(t, FormatAgentSpecific, conv.Metadata.Format)
	assert.Equal(t, "Claude", conv.Metadata.Agent)
	assert.Equal(t, first.Date, conv.Metadata.Date)
	assert.Equal(t, "Knowledge graph schema", conv.Metadata.Topic)

	_, err = p.SplitFile(filepath.Join(t.TempDir(), "missing.md"))
	assert.Error(t, err)
}
