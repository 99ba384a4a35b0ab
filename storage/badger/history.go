package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/storage"
)

// HistoryRepository implements storage.HistoryRepository for BadgerDB.
// Entity and relationship repositories append through it inside their own
// transactions so a transition and its history entry commit together.
type HistoryRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(backend *Backend) (*HistoryRepository, error) {
	idSeq, err := backend.GetSequence(historyIDSeq)
	if err != nil {
		return nil, err
	}
	return &HistoryRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *HistoryRepository) Close() error {
	return r.idSeq.Release()
}

// GetHistory returns the history of one target, newest first.
func (r *HistoryRepository) GetHistory(ctx context.Context, target core.TargetKind, id core.ID) ([]*core.HistoryEntry, error) {
	var entries []*core.HistoryEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, makePartialHistoryKey(target, id), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalHistoryEntry(val)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				return nil
			})
		})
	}, false)
	if err != nil {
		return nil, err
	}

	// Entry IDs are sequential, so key order is oldest first
	slices.Reverse(entries)
	return entries, nil
}

// append writes entry inside tx. The caller commits.
func (r *HistoryRepository) append(tx *badger.Txn, entry *core.HistoryEntry) error {
	if err := core.ValidateHistoryEntry(entry); err != nil {
		return err
	}

	id, err := nextID(r.idSeq)
	if err != nil {
		return err
	}
	entry.Id = core.ID(id)
	entry.CreatedAt = time.Now().UTC()

	key := makeHistoryKey(entry.Target, entry.TargetID, entry.Id)
	return tx.Set(key, storage.MarshalHistoryEntry(entry))
}
