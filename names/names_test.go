package names

import (
	"strings"
	"testing"

	"github.com/poiesic/kgingest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		valid      bool
		normalized string
		warnings   int
	}{
		{"plain", "Neo4j", true, "Neo4j", 0},
		{"collapses whitespace", "  Knowledge \t  Lake\n", true, "Knowledge Lake", 0},
		{"empty", "   ", false, "", 0},
		{"digits and punctuation", "12-34 !!", false, "12-34 !!", 0},
		{"symbols", "$$$", false, "$$$", 0},
		{"stop word", "The", false, "The", 0},
		{"stop word lower", "with", false, "with", 0},
		{"single character", "R", true, "R", 1},
		{"mixed digits", "3D printing", true, "3D printing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.input)
			assert.Equal(t, tt.valid, res.Valid)
			assert.Equal(t, tt.normalized, res.Normalized)
			assert.Len(t, res.Warnings, tt.warnings)
			if !tt.valid {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestValidateTruncatesLongNames(t *testing.T) {
	res := Validate(strings.Repeat("é", core.MaxNameLength+20))
	assert.False(t, res.Valid)
	assert.Equal(t, core.MaxNameLength, len([]rune(res.Normalized)))
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Next.js", "next.js"))
	assert.Equal(t, 1.0, Similarity("Knowledge Lake", "knowledge-lake"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.InDelta(t, 0.9, Similarity("PostgreSQL", "Postgre SQ"), 1e-9)
	assert.Less(t, Similarity("React", "Redux"), DuplicateThreshold)
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"日本語", "日本", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)), tt.a+"/"+tt.b)
		assert.Equal(t, tt.want, levenshtein([]rune(tt.b), []rune(tt.a)), tt.b+"/"+tt.a)
	}
}

func TestFindDuplicate(t *testing.T) {
	existing := []*core.Entity{
		{Id: 1, Name: "Knowledge Lake"},
		{Id: 2, Name: "PostgreSQL"},
		{Id: 3, Name: "React"},
	}

	tests := []struct {
		name  string
		input string
		want  core.ID
	}{
		{"exact case-insensitive", "knowledge lake", 1},
		{"separators ignored", "Knowledge_Lake", 1},
		{"fuzzy", "PostgreSQ", 2},
		{"too different", "Redux", 0},
		{"unrelated", "Docker", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dup := FindDuplicate(tt.input, existing)
			if tt.want == 0 {
				assert.Nil(t, dup)
				return
			}
			require.NotNil(t, dup)
			assert.Equal(t, tt.want, dup.Id)
		})
	}

	assert.Nil(t, FindDuplicate("anything", nil))
}

func TestIndexAdd(t *testing.T) {
	idx := NewIndex([]*core.Entity{{Id: 1, Name: "Neo4j"}, nil})
	assert.Equal(t, 1, idx.Len())
	assert.Nil(t, idx.Find("Cloudflare Workers"))

	idx.Add(&core.Entity{Id: 7, Name: "Cloudflare Workers"})
	dup := idx.Find("cloudflare-workers")
	require.NotNil(t, dup)
	assert.Equal(t, core.ID(7), dup.Id)

	idx.Add(&core.Entity{Id: 8, Name: "neo4j"})
	assert.Equal(t, core.ID(1), idx.Find("NEO4J").Id)
}

func TestLengthsCompatible(t *testing.T) {
	assert.True(t, lengthsCompatible(10, 9))
	assert.False(t, lengthsCompatible(10, 5))
	assert.True(t, lengthsCompatible(0, 0))
}
