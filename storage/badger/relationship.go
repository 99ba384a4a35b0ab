package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/storage"
)

// RelationshipRepository implements storage.RelationshipRepository for BadgerDB.
type RelationshipRepository struct {
	backend *Backend
	history *HistoryRepository
	idSeq   *badger.Sequence
}

var _ storage.RelationshipRepository = (*RelationshipRepository)(nil)

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository(backend *Backend, history *HistoryRepository) (*RelationshipRepository, error) {
	idSeq, err := backend.GetSequence(relationshipIDSeq)
	if err != nil {
		return nil, err
	}

	return &RelationshipRepository{
		backend: backend,
		history: history,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *RelationshipRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *RelationshipRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddRelationships adds one or more relationships to storage.
func (r *RelationshipRepository) AddRelationships(ctx context.Context, rels ...*core.Relationship) ([]*core.Relationship, error) {
	for _, rel := range rels {
		if err := core.ValidateRelationship(rel); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, rel := range rels {
			// Both endpoints must exist
			for _, endpoint := range []core.ID{rel.FromID, rel.ToID} {
				entity, err := readEntity(tx, endpoint)
				if err != nil {
					return err
				}
				if entity == nil {
					return fmt.Errorf("%w: entity %d", storage.ErrNotFound, endpoint)
				}
			}

			id, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			rel.Id = core.ID(id)
			rel.InsertedAt = time.Now().UTC()
			rel.UpdatedAt = rel.InsertedAt

			if err := tx.Set(makeRelationshipKey(rel.Id), storage.MarshalRelationship(rel)); err != nil {
				return err
			}
			if err := tx.Set(makeRelationshipEndKey(rel.FromID, rel.Id), nil); err != nil {
				return err
			}
			if err := tx.Set(makeRelationshipEndKey(rel.ToID, rel.Id), nil); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return rels, nil
}

// GetRelationship retrieves a single relationship by ID.
func (r *RelationshipRepository) GetRelationship(ctx context.Context, id core.ID) (*core.Relationship, error) {
	var result *core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readRelationship(tx, id)
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

// GetRelationshipsForEntity retrieves relationships touching entityID.
func (r *RelationshipRepository) GetRelationshipsForEntity(ctx context.Context, entityID core.ID) ([]*core.Relationship, error) {
	var results []*core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := collectIndexedIDs(tx, makePartialRelationshipEndKey(entityID))
		if err != nil {
			return err
		}
		for _, id := range ids {
			rel, err := readRelationship(tx, id)
			if err != nil {
				return err
			}
			if rel != nil {
				results = append(results, rel)
			}
		}
		return nil
	}, false)
	return results, err
}

// TransitionRelationship moves a relationship between semantic states and records history.
func (r *RelationshipRepository) TransitionRelationship(ctx context.Context, id core.ID, from, to core.SemanticState, entry *core.HistoryEntry) (*core.Relationship, error) {
	if err := core.ValidateSemanticState(to); err != nil {
		return nil, err
	}

	var result *core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		rel, err := readRelationship(tx, id)
		if err != nil {
			return err
		}
		if rel == nil {
			return storage.ErrNotFound
		}
		if rel.State != from {
			return fmt.Errorf("%w: relationship %d is %s, expected %s", storage.ErrStateConflict, id, rel.State, from)
		}

		rel.State = to
		rel.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeRelationshipKey(id), storage.MarshalRelationship(rel)); err != nil {
			return err
		}

		entry.Target = core.TargetRelationship
		entry.TargetID = id
		entry.PreviousState = from
		entry.NewState = to
		if err := r.history.append(tx, entry); err != nil {
			return err
		}

		result = rel
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Helper methods

// deleteRelationshipsFor removes every relationship touching entityID,
// including the endpoint index entries on the far side.
func deleteRelationshipsFor(tx *badger.Txn, entityID core.ID) error {
	ids, err := collectIndexedIDs(tx, makePartialRelationshipEndKey(entityID))
	if err != nil {
		return err
	}

	for _, id := range ids {
		rel, err := readRelationship(tx, id)
		if err != nil {
			return err
		}
		if rel != nil {
			if err := tx.Delete(makeRelationshipEndKey(rel.FromID, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeRelationshipEndKey(rel.ToID, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeRelationshipKey(id)); err != nil {
				return err
			}
			continue
		}
		if err := tx.Delete(makeRelationshipEndKey(entityID, id)); err != nil {
			return err
		}
	}
	return nil
}

// readRelationship reads a relationship from the transaction.
// Returns nil, nil if it does not exist.
func readRelationship(tx *badger.Txn, id core.ID) (*core.Relationship, error) {
	item, err := tx.Get(makeRelationshipKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var rel *core.Relationship
	err = item.Value(func(val []byte) error {
		var err error
		rel, err = storage.UnmarshalRelationship(val)
		return err
	})
	return rel, err
}
