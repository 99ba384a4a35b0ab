package relate

import (
	"regexp"
	"testing"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/vocab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entity(category core.Category, name string) core.ExtractedEntity {
	return core.ExtractedEntity{Category: category, Name: name, Confidence: 0.9}
}

func TestInferDefaultRules(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	text := "Fred used Neo4j for storage. Claude and Penny coordinated. " +
		"Neo4j integrates with Next.js nicely. Fred built AAE Dashboard last week."
	entities := []core.ExtractedEntity{
		entity(core.CategoryAgents, "Fred"),
		entity(core.CategoryAgents, "Claude"),
		entity(core.CategoryAgents, "Penny"),
		entity(core.CategoryTechnology, "Neo4j"),
		entity(core.CategoryTechnology, "Next.js"),
		entity(core.CategoryExecutiveAI, "AAE Dashboard"),
	}

	rels := b.Infer(entities, text)

	type triple struct {
		from, typ, to, excerpt string
		confidence             float64
		weight                 int
	}
	got := make([]triple, len(rels))
	for i, r := range rels {
		got[i] = triple{r.From, r.Type, r.To, r.Excerpt, r.Confidence, r.Weight}
	}
	assert.Equal(t, []triple{
		{"Fred", "agent_uses_technology", "Neo4j", "Fred used Neo4j", 0.85, 8},
		{"Claude", "agent_collaborates_with_agent", "Penny", "Claude and Penny", 0.75, 6},
		{"Fred", "agent_works_on_project", "AAE Dashboard", "Fred built AAE Dashboard", 0.8, 7},
		{"Neo4j", "technology_integrates_technology", "Next.js", "Neo4j integrates with Next.js", 0.85, 8},
		{"Fred", "agent_created_project", "AAE Dashboard", "Fred built AAE Dashboard", 0.8, 7},
	}, got)
}

func TestInferKeepsHighestConfidence(t *testing.T) {
	tables, err := vocab.Parse([]byte("relationships:\n" +
		"  - {type: link, from: Technology, to: Technology, pairing: ordered, connectors: [with], window: 20, confidence: 0.6, weight: 3}\n" +
		"  - {type: link, from: Technology, to: Technology, pairing: ordered, connectors: [via], window: 20, confidence: 0.9, weight: 9}\n"))
	require.NoError(t, err)
	b, err := NewBuilder(WithVocabulary(tables))
	require.NoError(t, err)

	rels := b.Infer([]core.ExtractedEntity{
		entity(core.CategoryTechnology, "Alpha"),
		entity(core.CategoryTechnology, "Beta"),
	}, "Alpha talks with Beta, and Alpha goes via Beta")

	require.Len(t, rels, 1)
	assert.Equal(t, 0.9, rels[0].Confidence)
	assert.Equal(t, 9, rels[0].Weight)
	assert.Equal(t, "Alpha goes via Beta", rels[0].Excerpt)
}

func TestInferExcerptStartsAtNearestSubject(t *testing.T) {
	tables, err := vocab.Parse([]byte("relationships:\n" +
		"  - {type: link, from: Technology, to: Technology, pairing: ordered, connectors: [links with], window: 60, confidence: 0.8, weight: 5}\n"))
	require.NoError(t, err)
	b, err := NewBuilder(WithVocabulary(tables))
	require.NoError(t, err)

	rels := b.Infer([]core.ExtractedEntity{
		entity(core.CategoryTechnology, "Alpha"),
		entity(core.CategoryTechnology, "Beta"),
	}, "Alpha is old. alpha was rewritten. Alpha links with Beta today.")

	require.Len(t, rels, 1)
	assert.Equal(t, "Alpha links with Beta", rels[0].Excerpt)
}

func TestInferRequiresBothEndpoints(t *testing.T) {
	b, err := NewBuilder()
	require.NoError(t, err)

	rels := b.Infer([]core.ExtractedEntity{
		entity(core.CategoryAgents, "Fred"),
		entity(core.CategoryTechnology, "Docker"),
	}, "Fred used something else entirely")
	assert.Empty(t, rels)

	assert.Empty(t, b.Infer(nil, "Fred used Docker"))
}

func TestPatternWindow(t *testing.T) {
	rule := &vocab.RelationshipRule{Type: "t", Connectors: []string{"uses"}, Window: 5}
	re := regexp.MustCompile(Pattern(rule, "Fred", "Git"))

	assert.True(t, re.MatchString("fred now uses Git"))
	assert.True(t, re.MatchString("Fred\nUSES\ngit"))
	assert.False(t, re.MatchString("Fred, much later, uses Git"))
	assert.False(t, re.MatchString("Fred uses the new tool Git"))
	assert.False(t, re.MatchString("Freddy uses Git"))
}
