package storage

import (
	"context"

	"github.com/poiesic/kgingest/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the repository and releases resources.
	Close() error
}

// EntityRepository provides operations for managing knowledge-graph entities.
type EntityRepository interface {
	Repository
	// AddEntities adds one or more entities to storage.
	// Generates IDs from a sequence and sets InsertedAt/UpdatedAt.
	// Every entity is validated with core.ValidateEntity before anything is written.
	// Returns the entities with generated IDs and timestamps populated.
	AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// GetEntities retrieves multiple entities by their IDs.
	// Returns only the entities that exist (no error for missing entities).
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error)

	// GetEntitiesByOwner retrieves all entities owned by ownerID, ordered by ID.
	GetEntitiesByOwner(ctx context.Context, ownerID string) ([]*core.Entity, error)

	// GetAllEntities retrieves every entity regardless of owner, ordered by ID.
	GetAllEntities(ctx context.Context) ([]*core.Entity, error)

	// FindEntitiesBySource retrieves the entities created from sourceID.
	FindEntitiesBySource(ctx context.Context, sourceID string) ([]*core.Entity, error)

	// DeleteEntitiesBySource removes every entity created from sourceID along with
	// every relationship that references one of them. Returns the number of
	// entities removed. Entity and relationship deletes happen in one transaction.
	DeleteEntitiesBySource(ctx context.Context, sourceID string) (int, error)

	// TransitionEntity moves an entity from one semantic state to another and
	// appends entry to the history log in the same transaction.
	// Returns ErrNotFound if the entity doesn't exist and ErrStateConflict if
	// its current state is not from.
	TransitionEntity(ctx context.Context, id core.ID, from, to core.SemanticState, entry *core.HistoryEntry) (*core.Entity, error)
}

// RelationshipRepository provides operations for managing relationships.
type RelationshipRepository interface {
	Repository
	// AddRelationships adds one or more relationships to storage.
	// Returns ErrNotFound if an endpoint entity doesn't exist.
	AddRelationships(ctx context.Context, rels ...*core.Relationship) ([]*core.Relationship, error)

	// GetRelationship retrieves a single relationship by ID.
	// Returns ErrNotFound if the relationship doesn't exist.
	GetRelationship(ctx context.Context, id core.ID) (*core.Relationship, error)

	// GetRelationshipsForEntity retrieves relationships where the entity is
	// either endpoint. Each relationship appears once.
	GetRelationshipsForEntity(ctx context.Context, entityID core.ID) ([]*core.Relationship, error)

	// TransitionRelationship is the relationship counterpart of
	// EntityRepository.TransitionEntity.
	TransitionRelationship(ctx context.Context, id core.ID, from, to core.SemanticState, entry *core.HistoryEntry) (*core.Relationship, error)
}

// HistoryRepository provides read access to the append-only semantic history.
// Entries are only ever written by the Transition methods.
type HistoryRepository interface {
	// GetHistory returns the history of one entity or relationship, newest first.
	GetHistory(ctx context.Context, target core.TargetKind, id core.ID) ([]*core.HistoryEntry, error)
}

// RunRepository records the last live ingestion of each source.
type RunRepository interface {
	// SaveRun persists run, replacing any previous run for the same source.
	SaveRun(ctx context.Context, run *core.SourceRun) error

	// LoadRun retrieves the run for sourceID.
	// Returns nil, nil if the source has never been ingested.
	LoadRun(ctx context.Context, sourceID string) (*core.SourceRun, error)

	// ListRuns returns every recorded run ordered by source ID.
	ListRuns(ctx context.Context) ([]*core.SourceRun, error)

	// DeleteRun removes the run for sourceID. Missing runs are not an error.
	DeleteRun(ctx context.Context, sourceID string) error
}
