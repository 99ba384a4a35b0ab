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


// Package storage provides the storage abstraction layer for kgingest.
//
// This package defines repository interfaces that decouple the ingestion
// pipeline and the promotion workflow from the storage implementation.
// The only backend today is BadgerDB (storage/badger), but callers depend
// on these interfaces only.
//
// # Architecture
//
// The storage layer follows the Repository pattern:
//
//   - EntityRepository: knowledge-graph nodes, lookup by owner and source
//   - RelationshipRepository: typed, weighted edges between entities
//   - HistoryRepository: append-only semantic state transitions
//   - RunRepository: per-source ingestion ledger
//
// # Invariants
//
// Category and semantic state are closed enumerations. Every write path
// validates records with the core package before touching the store, so an
// out-of-set value fails at the boundary.
//
// Semantic state only changes through the Transition methods, which apply a
// compare-and-set on the current state and append the history entry in the
// same transaction. History entries are never updated or deleted.
//
// Deleting entities by source cascades to every relationship that references
// them.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	entities, err := badger.NewEntityRepository(backend)
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//	defer store.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
