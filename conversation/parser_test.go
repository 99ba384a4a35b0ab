package conversation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestParser(t *testing.T, opts ...Option) *Parser {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	p, err := NewParser(opts...)
	require.NoError(t, err)
	return p
}

func TestParseClaudeExport(t *testing.T) {
	content := "# Claude Conversation - 15/01/2024\r\n\r\n" +
		"Topic: Knowledge Lake planning\r\n\r\n" +
		"User: Fred used Neo4j for the graph.\r\n\r\n" +
		"Assistant: Noted.\r\n"

	conv, err := newTestParser(t).Parse("/exports/claude.md", []byte(content))
	require.NoError(t, err)

	meta := conv.Metadata
	assert.Equal(t, FormatClaudeGUI, meta.Format)
	assert.Equal(t, "Claude", meta.Agent)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), meta.Date)
	assert.False(t, meta.DateFallback)
	assert.Equal(t, []string{"Claude", "User", "Fred"}, meta.Participants)
	assert.Equal(t, "Knowledge Lake planning", meta.Topic)
	assert.Equal(t, int64(len(content)), meta.FileSize)
	assert.NotContains(t, conv.Text, "\r")
	require.Len(t, conv.Chunks, 1)
}

func TestParseGeminiExport(t *testing.T) {
	content := "Gemini CLI session 02/03/2025\n\nwe talked"
	conv, err := newTestParser(t).Parse("gemini.md", []byte(content))
	require.NoError(t, err)
	assert.Equal(t, FormatGeminiCLI, conv.Metadata.Format)
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), conv.Metadata.Date)
	assert.Equal(t, []string{"Gemini", "User"}, conv.Metadata.Participants)
	assert.Equal(t, "gemini", conv.Metadata.Topic)
}

func TestParseAgentSpecificExport(t *testing.T) {
	content := "Agent: Penny\nDate: 2024-03-05\n\n## Summary\nPenny and Fred reviewed the plan."
	conv, err := newTestParser(t).Parse("penny.md", []byte(content))
	require.NoError(t, err)

	meta := conv.Metadata
	assert.Equal(t, FormatAgentSpecific, meta.Format)
	assert.Equal(t, "Penny", meta.Agent)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), meta.Date)
	assert.Equal(t, []string{"Penny", "Fred"}, meta.Participants)
	assert.Equal(t, "Summary", meta.Topic)
}

func TestParseDateFallback(t *testing.T) {
	conv, err := newTestParser(t).Parse("notes.md", []byte("# Notes\n\nnothing dated here"))
	require.NoError(t, err)
	assert.Equal(t, FormatUnknown, conv.Metadata.Format)
	assert.True(t, conv.Metadata.DateFallback)
	assert.Equal(t, fixedNow, conv.Metadata.Date)
	assert.Equal(t, "Notes", conv.Metadata.Topic)
}

func TestParseDateOutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		field string
	}{
		{"day", "32/01/2024", "day"},
		{"zero day", "00/01/2024", "day"},
		{"month", "15/13/2024", "month"},
		{"year too early", "15/01/1999", "year"},
		{"year too late", "15/01/2101", "year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "# Claude Conversation - " + tt.date + "\n\nhello"
			_, err := newTestParser(t).Parse("c.md", []byte(content))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDateOutOfRange)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.field, perr.Field)
			assert.Equal(t, tt.date, perr.Value)
		})
	}
}

func TestParseUnknownFormatIgnoresOutOfRangeDates(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		fallback bool
		want     time.Time
	}{
		{"us style date", "# Project notes\n\nMeeting on 01/25/2024 with Claude.", true, fixedNow},
		{"reference number", "# Project notes\n\nInvoice ref 99/99/2024.", true, fixedNow},
		{"bad iso date", "# Project notes\n\nBuild 2024-13-40 shipped.", true, fixedNow},
		{"iso after us date", "# Project notes\n\nMoved from 01/25/2024 to 2024-02-03.", false,
			time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, err := newTestParser(t).Parse("notes.md", []byte(tt.content))
			require.NoError(t, err)
			assert.Equal(t, FormatUnknown, conv.Metadata.Format)
			assert.Equal(t, tt.fallback, conv.Metadata.DateFallback)
			assert.Equal(t, tt.want, conv.Metadata.Date)
		})
	}
}

func TestParseBoundaryDatesAccepted(t *testing.T) {
	for _, date := range []string{"01/01/2020", "31/12/2100"} {
		content := "# Claude Conversation - " + date + "\n\nhello"
		_, err := newTestParser(t).Parse("c.md", []byte(content))
		assert.NoError(t, err, date)
	}
}

func TestNewParserRejectsBadOptions(t *testing.T) {
	_, err := NewParser(WithVocabulary(nil))
	assert.Error(t, err)
	_, err = NewParser(WithWindowSize(0))
	assert.Error(t, err)
	_, err = NewParser(WithStreamThreshold(-1))
	assert.Error(t, err)
}
