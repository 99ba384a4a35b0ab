package storage

import (
	"reflect"
	"testing"
	"time"

	"github.com/poiesic/kgingest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityRoundTripPreservesConfidence(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	entity := &core.Entity{
		Id:          core.ID(12),
		OwnerID:     "owner-1",
		Category:    core.CategoryTechnology,
		Name:        "Drizzle ORM",
		Description: "Technology: Drizzle ORM",
		State:       core.StateDraft,
		Confidence:  0.9,
		Excerpt:     "...we moved to drizzle-orm — ünïcode ok...",
		Properties:  map[string]string{"origin": "conversation"},
		SourceType:  "conversation",
		SourceID:    "/data/chat.md",
		SourceURL:   "/data/chat.md",
		InsertedAt:  now,
		UpdatedAt:   now,
	}

	decoded, err := UnmarshalEntity(MarshalEntity(entity))
	require.NoError(t, err)
	assert.Equal(t, entity, decoded)
}

func TestEntityWithoutPropertiesDecodesNilMap(t *testing.T) {
	decoded, err := UnmarshalEntity(MarshalEntity(&core.Entity{Name: "x", Category: core.CategoryAgents, State: core.StateRaw}))
	require.NoError(t, err)
	assert.Nil(t, decoded.Properties)
	assert.True(t, decoded.InsertedAt.IsZero())
}

func TestUnmarshalTruncated(t *testing.T) {
	data := MarshalRelationship(&core.Relationship{
		Id: 1, FromID: 2, ToID: 3, Type: "agent_uses_technology", Weight: 8,
		State: core.StateRaw, Confidence: 0.85,
	})

	_, err := UnmarshalRelationship(data[:len(data)/2])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

// Every record field must survive encoding. A new field left at its zero
// value here fails the test until the codecs in core are regenerated.
func TestRecordCodecsCoverEveryField(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	later := now.Add(time.Minute)

	rel := &core.Relationship{
		Id: 1, FromID: 2, ToID: 3, Type: "agent_uses_technology", Weight: 8,
		State: core.StateDraft, Confidence: 0.85, Excerpt: "Claude uses Neo4j",
		Properties: map[string]string{"rule": "default"}, InsertedAt: now, UpdatedAt: later,
	}
	entry := &core.HistoryEntry{
		Id: 4, Target: core.TargetEntity, TargetID: 5, PreviousState: core.StateRaw,
		NewState: core.StateCooked, ActorID: "carla", Reason: "checked", CreatedAt: now,
	}
	run := &core.SourceRun{
		SourceID: "/data/chat.md", RunID: "run-1", ContentHash: "abc123",
		EntitiesCreated: 2, RelationshipsCreated: 1, CompletedAt: now,
	}

	tests := []struct {
		name   string
		value  any
		decode func() (any, error)
	}{
		{"relationship", rel, func() (any, error) { return UnmarshalRelationship(MarshalRelationship(rel)) }},
		{"history entry", entry, func() (any, error) { return UnmarshalHistoryEntry(MarshalHistoryEntry(entry)) }},
		{"source run", run, func() (any, error) { return UnmarshalSourceRun(MarshalSourceRun(run)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := reflect.ValueOf(tt.value).Elem()
			for i := range v.NumField() {
				assert.False(t, v.Field(i).IsZero(), "fixture leaves %s zero", v.Type().Field(i).Name)
			}
			decoded, err := tt.decode()
			require.NoError(t, err)
			assert.Equal(t, tt.value, decoded)
		})
	}
}
