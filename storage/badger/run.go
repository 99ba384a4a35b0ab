// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) *RunRepository {
	return &RunRepository{
		backend: backend,
	}
}

// SaveRun persists the run for a source, replacing any previous one.
func (r *RunRepository) SaveRun(ctx context.Context, run *core.SourceRun) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if run.CompletedAt.IsZero() {
			run.CompletedAt = time.Now().UTC()
		}
		if err := tx.Set(makeSourceRunKey(run.SourceID), storage.MarshalSourceRun(run)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadRun retrieves the run for a source.
// Returns nil, nil if no run exists.
func (r *RunRepository) LoadRun(ctx context.Context, sourceID string) (*core.SourceRun, error) {
	var run *core.SourceRun
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeSourceRunKey(sourceID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			run, unmarshalErr = storage.UnmarshalSourceRun(val)
			return unmarshalErr
		})
	}, false)

	return run, err
}

// ListRuns returns every recorded run ordered by source ID.
func (r *RunRepository) ListRuns(ctx context.Context) ([]*core.SourceRun, error) {
	var runs []*core.SourceRun
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(sourceRunPrefix+":"), false, func(item *badger.Item) error {
			return item.Value(func(val []byte) error {
				run, err := storage.UnmarshalSourceRun(val)
				if err != nil {
					return err
				}
				runs = append(runs, run)
				return nil
			})
		})
	}, false)
	return runs, err
}

// DeleteRun removes the run for a source.
func (r *RunRepository) DeleteRun(ctx context.Context, sourceID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeSourceRunKey(sourceID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
