package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
	history *HistoryRepository
	idSeq   *badger.Sequence
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
// Transitions append to history.
func NewEntityRepository(backend *Backend, history *HistoryRepository) (*EntityRepository, error) {
	idSeq, err := backend.GetSequence(entityIDSeq)
	if err != nil {
		return nil, err
	}

	return &EntityRepository{
		backend: backend,
		history: history,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *EntityRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEntities adds one or more entities to storage.
func (r *EntityRepository) AddEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error) {
	// Validate everything up front so a bad record never leaves a partial batch
	for _, entity := range entities {
		if err := core.ValidateEntity(entity); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			entity.Id = core.ID(id)

			entity.InsertedAt = time.Now().UTC()
			entity.UpdatedAt = entity.InsertedAt

			// Store primary record
			if err := tx.Set(makeEntityKey(entity.Id), storage.MarshalEntity(entity)); err != nil {
				return err
			}

			// Update owner index
			if err := tx.Set(makeEntityOwnerKey(entity.OwnerID, entity.Id), nil); err != nil {
				return err
			}

			// Update source index
			if entity.SourceID != "" {
				if err := tx.Set(makeEntitySourceKey(entity.SourceID, entity.Id), nil); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return entities, nil
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.Entity, error) {
	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readEntity(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.Entity, error) {
	var result []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			entity, err := readEntity(tx, id)
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetEntitiesByOwner retrieves all entities owned by ownerID.
func (r *EntityRepository) GetEntitiesByOwner(ctx context.Context, ownerID string) ([]*core.Entity, error) {
	return r.readIndexed(makeStringPrefix(entityOwnerPrefix, ownerID))
}

// FindEntitiesBySource retrieves the entities created from sourceID.
func (r *EntityRepository) FindEntitiesBySource(ctx context.Context, sourceID string) ([]*core.Entity, error) {
	return r.readIndexed(makeStringPrefix(entitySourcePrefix, sourceID))
}

// GetAllEntities retrieves every entity.
func (r *EntityRepository) GetAllEntities(ctx context.Context) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(entityRecordPrefix+":"), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				entity, err := storage.UnmarshalEntity(val)
				if err != nil {
					return err
				}
				results = append(results, entity)
				return nil
			})
		})
	}, false)
	return results, err
}

// DeleteEntitiesBySource removes every entity created from sourceID and
// cascades to their relationships.
func (r *EntityRepository) DeleteEntitiesBySource(ctx context.Context, sourceID string) (int, error) {
	deleted := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := collectIndexedIDs(tx, makeStringPrefix(entitySourcePrefix, sourceID))
		if err != nil {
			return err
		}

		for _, id := range ids {
			entity, err := readEntity(tx, id)
			if err != nil {
				return err
			}
			if entity == nil {
				// Stale index entry, drop it
				if err := tx.Delete(makeEntitySourceKey(sourceID, id)); err != nil {
					return err
				}
				continue
			}

			if err := deleteRelationshipsFor(tx, id); err != nil {
				return err
			}
			if err := tx.Delete(makeEntityOwnerKey(entity.OwnerID, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeEntitySourceKey(sourceID, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeEntityKey(id)); err != nil {
				return err
			}
			deleted++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// TransitionEntity moves an entity between semantic states and records history.
func (r *EntityRepository) TransitionEntity(ctx context.Context, id core.ID, from, to core.SemanticState, entry *core.HistoryEntry) (*core.Entity, error) {
	if err := core.ValidateSemanticState(to); err != nil {
		return nil, err
	}

	var result *core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		entity, err := readEntity(tx, id)
		if err != nil {
			return err
		}
		if entity == nil {
			return storage.ErrNotFound
		}
		if entity.State != from {
			return fmt.Errorf("%w: entity %d is %s, expected %s", storage.ErrStateConflict, id, entity.State, from)
		}

		entity.State = to
		entity.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeEntityKey(id), storage.MarshalEntity(entity)); err != nil {
			return err
		}

		entry.Target = core.TargetEntity
		entry.TargetID = id
		entry.PreviousState = from
		entry.NewState = to
		if err := r.history.append(tx, entry); err != nil {
			return err
		}

		result = entity
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Helper methods

// readIndexed loads the entities referenced by an index prefix.
func (r *EntityRepository) readIndexed(prefix []byte) ([]*core.Entity, error) {
	var results []*core.Entity
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := collectIndexedIDs(tx, prefix)
		if err != nil {
			return err
		}
		for _, id := range ids {
			entity, err := readEntity(tx, id)
			if err != nil {
				return err
			}
			if entity != nil {
				results = append(results, entity)
			}
		}
		return nil
	}, false)
	return results, err
}

// collectIndexedIDs returns the IDs stored as key suffixes under prefix.
func collectIndexedIDs(tx *badger.Txn, prefix []byte) ([]core.ID, error) {
	var ids []core.ID
	err := scanPrefix(tx, prefix, true, func(item *badger.Item) error {
		ids = append(ids, idFromKeySuffix(item.Key()))
		return nil
	})
	return ids, err
}

// readEntity reads an entity from the transaction.
// Returns nil, nil if it does not exist.
func readEntity(tx *badger.Txn, id core.ID) (*core.Entity, error) {
	item, err := tx.Get(makeEntityKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.Entity
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntity(val)
		return err
	})
	return entity, err
}
