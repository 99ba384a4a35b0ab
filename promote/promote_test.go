package promote

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/storage"
	"github.com/poiesic/kgingest/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	member = core.Actor{ID: "fred", Role: core.RoleMember}
	admin  = core.Actor{ID: "carla", Role: core.RoleAdmin}
)

func setup(t *testing.T) (*Promoter, *badger.Store) {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p, err := NewPromoter(store.Entities, store.Relationships, store.History)
	require.NoError(t, err)
	return p, store
}

func addEntity(t *testing.T, store *badger.Store, name string, state core.SemanticState) *core.Entity {
	t.Helper()
	added, err := store.Entities.AddEntities(context.Background(), &core.Entity{
		OwnerID:    "default",
		Category:   core.CategoryAgents,
		Name:       name,
		State:      state,
		Confidence: 0.95,
	})
	require.NoError(t, err)
	return added[0]
}

func TestNewPromoterRequiresRepositories(t *testing.T) {
	_, err := NewPromoter(nil, nil, nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}

func TestPromoteEntityTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    core.SemanticState
		to      core.SemanticState
		actor   core.Actor
		wantErr error
	}{
		{"raw to draft", core.StateRaw, core.StateDraft, member, nil},
		{"raw to cooked skips draft", core.StateRaw, core.StateCooked, member, nil},
		{"draft to cooked", core.StateDraft, core.StateCooked, member, nil},
		{"admin to canonical", core.StateCooked, core.StateCanonical, admin, nil},
		{"admin raw to canonical", core.StateRaw, core.StateCanonical, admin, nil},
		{"cooked to draft", core.StateCooked, core.StateDraft, member, ErrInvalidTransition},
		{"same state", core.StateDraft, core.StateDraft, member, ErrInvalidTransition},
		{"canonical to raw", core.StateCanonical, core.StateRaw, admin, ErrInvalidTransition},
		{"member to canonical", core.StateCooked, core.StateCanonical, member, ErrPermissionDenied},
		{"member to canonical from canonical", core.StateCanonical, core.StateCanonical, member, ErrPermissionDenied},
		{"unknown target", core.StateRaw, core.SemanticState("BAKED"), admin, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store := setup(t)
			ctx := context.Background()
			ent := addEntity(t, store, "Claude", tt.from)

			updated, err := p.PromoteEntity(ctx, Request{ID: ent.Id, Target: tt.to, Actor: tt.actor, Reason: "reviewed"})
			history, herr := p.History(ctx, core.TargetEntity, ent.Id)
			require.NoError(t, herr)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, updated)
				assert.Empty(t, history)

				stored, err := store.Entities.GetEntity(ctx, ent.Id)
				require.NoError(t, err)
				assert.Equal(t, tt.from, stored.State)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.State)

			require.Len(t, history, 1)
			assert.Equal(t, tt.from, history[0].PreviousState)
			assert.Equal(t, tt.to, history[0].NewState)
			assert.Equal(t, tt.actor.ID, history[0].ActorID)
			assert.Equal(t, "reviewed", history[0].Reason)
			assert.False(t, history[0].CreatedAt.IsZero())
		})
	}
}

func TestPromoteRequiresActor(t *testing.T) {
	p, store := setup(t)
	ent := addEntity(t, store, "Claude", core.StateRaw)

	_, err := p.PromoteEntity(context.Background(), Request{ID: ent.Id, Target: core.StateDraft})
	assert.ErrorIs(t, err, ErrActorRequired)
}

func TestPromoteMissingTarget(t *testing.T) {
	p, _ := setup(t)
	ctx := context.Background()

	_, err := p.PromoteEntity(ctx, Request{ID: 999, Target: core.StateDraft, Actor: member})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = p.PromoteRelationship(ctx, Request{ID: 999, Target: core.StateDraft, Actor: member})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Permission is checked before the lookup.
	_, err = p.PromoteEntity(ctx, Request{ID: 999, Target: core.StateCanonical, Actor: member})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestPromoteRelationshipIndependentOfEndpoints(t *testing.T) {
	p, store := setup(t)
	ctx := context.Background()
	claude := addEntity(t, store, "Claude", core.StateRaw)
	penny := addEntity(t, store, "Penny", core.StateRaw)

	rels, err := store.Relationships.AddRelationships(ctx, &core.Relationship{
		FromID: claude.Id, ToID: penny.Id, Type: "agent_collaborates_with_agent",
		Weight: 6, State: core.StateRaw, Confidence: 0.75,
	})
	require.NoError(t, err)
	relID := rels[0].Id

	updated, err := p.PromoteRelationship(ctx, Request{ID: relID, Target: core.StateCooked, Actor: member})
	require.NoError(t, err)
	assert.Equal(t, core.StateCooked, updated.State)

	_, err = p.PromoteRelationship(ctx, Request{ID: relID, Target: core.StateDraft, Actor: member})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = p.PromoteRelationship(ctx, Request{ID: relID, Target: core.StateCanonical, Actor: admin})
	require.NoError(t, err)

	history, err := p.History(ctx, core.TargetRelationship, relID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.StateCanonical, history[0].NewState, "newest first")
	assert.Equal(t, core.StateRaw, history[1].PreviousState)

	endpoint, err := store.Entities.GetEntity(ctx, claude.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StateRaw, endpoint.State)

	entityHistory, err := p.History(ctx, core.TargetEntity, claude.Id)
	require.NoError(t, err)
	assert.Empty(t, entityHistory)
}

func TestConcurrentPromotionsWriteOneEntry(t *testing.T) {
	p, store := setup(t)
	ctx := context.Background()
	ent := addEntity(t, store, "Claude", core.StateRaw)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = p.PromoteEntity(ctx, Request{ID: ent.Id, Target: core.StateDraft, Actor: member})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidTransition)
	}
	assert.Equal(t, 1, succeeded)

	history, err := p.History(ctx, core.TargetEntity, ent.Id)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
