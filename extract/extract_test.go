package extract

import (
	"strings"
	"testing"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(ents []core.ExtractedEntity) []string {
	out := make([]string, len(ents))
	for i, e := range ents {
		out[i] = string(e.Category) + "/" + e.Name
	}
	return out
}

func TestExtractDefaultVocabulary(t *testing.T) {
	e, err := NewExtractor()
	require.NoError(t, err)

	text := "Fred used Neo4j with Next.js. We discussed digital transformation and AI adoption. Fred again."
	ents := e.Extract(text)

	assert.Equal(t, []string{
		"Agents/Fred",
		"Technology/Neo4j",
		"Technology/Next.js",
		"ClientIntelligence/digital transformation",
		"ClientIntelligence/AI adoption",
	}, names(ents))

	assert.Equal(t, 0.95, ents[0].Confidence)
	assert.Equal(t, "AI agent: Fred", ents[0].Description)
	assert.Equal(t, 0.9, ents[1].Confidence)
	assert.Equal(t, 0.65, ents[3].Confidence)
	for _, ent := range ents {
		assert.NotEmpty(t, ent.Excerpt)
		assert.True(t, core.IsValidConfidence(ent.Confidence))
	}
}

func TestExtractKeepsHigherConfidence(t *testing.T) {
	tables, err := vocab.Parse([]byte(
		"entities:\n" +
			"  - {pass: a, category: Technology, tier: term, terms: [{name: Widget, confidence: 0.7}]}\n" +
			"  - {pass: b, category: Technology, tier: term, terms: [{pattern: '\\bwidget\\b', caseSensitive: true, confidence: 0.9}]}\n"))
	require.NoError(t, err)

	e, err := NewExtractor(WithVocabulary(tables))
	require.NoError(t, err)

	ents := e.Extract("the Widget talks to another widget")
	require.Len(t, ents, 1)
	assert.Equal(t, "widget", ents[0].Name)
	assert.Equal(t, 0.9, ents[0].Confidence)
}

func TestExtractAllMergesChunks(t *testing.T) {
	e, err := NewExtractor()
	require.NoError(t, err)

	ents := e.ExtractAll([]string{"Fred is here", "", "Neo4j and fred"})
	assert.Equal(t, []string{"Agents/Fred", "Technology/Neo4j"}, names(ents))
}

func TestExtractNothing(t *testing.T) {
	e, err := NewExtractor()
	require.NoError(t, err)
	assert.Empty(t, e.Extract("nothing of note was said"))
	assert.Empty(t, e.Extract("   "))
}

func TestExcerpt(t *testing.T) {
	runes := []rune(strings.Repeat("x", 200))

	tests := []struct {
		name  string
		start int
		want  string
	}{
		{"middle", 100, "..." + strings.Repeat("x", 160) + "..."},
		{"near start", 10, strings.Repeat("x", 90) + "..."},
		{"near end", 190, "..." + strings.Repeat("x", 90)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, excerpt(runes, tt.start, 80))
		})
	}

	assert.Equal(t, "a b c", excerpt([]rune("a \n\t b   c"), 0, 80))
}

func TestNewExtractorRejectsBadOptions(t *testing.T) {
	_, err := NewExtractor(WithVocabulary(nil))
	assert.Error(t, err)
	_, err = NewExtractor(WithExcerptRadius(-1))
	assert.Error(t, err)
}
