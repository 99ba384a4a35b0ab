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


// Package kgingest turns conversation transcripts into a knowledge graph of
// typed entities and relationships with a staged trust lifecycle.
//
// Database opens the store and hands out the components that work on it:
//
//	db, err := kgingest.NewDatabase("./kgingest.db")
//	if err != nil { ... }
//	defer db.Close()
//
//	pipeline, err := db.NewPipeline(ingestion.WithOwner("owner-1"))
//	res, err := pipeline.Ingest(ctx, ingestion.Request{FilePath: "chat.md"})
package kgingest

import (
	"log/slog"

	"github.com/poiesic/kgingest/ingestion"
	"github.com/poiesic/kgingest/promote"
	"github.com/poiesic/kgingest/search"
	"github.com/poiesic/kgingest/storage"
	"github.com/poiesic/kgingest/storage/badger"
)

type Database struct {
	store  *badger.Store
	logger *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	inMemory bool
	logger   *slog.Logger
}

// InMemory keeps the whole store in memory. The path is ignored.
func InMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger handed to every component the database creates.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.inMemory {
		filePath = ""
	}

	store, err := badger.OpenStore(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	return &Database{
		store:  store,
		logger: options.logger,
	}, nil
}

func (db *Database) Close() error {
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

func (db *Database) EntityRepository() storage.EntityRepository {
	return db.store.Entities
}

func (db *Database) RelationshipRepository() storage.RelationshipRepository {
	return db.store.Relationships
}

func (db *Database) HistoryRepository() storage.HistoryRepository {
	return db.store.History
}

func (db *Database) RunRepository() storage.RunRepository {
	return db.store.Runs
}

// NewPipeline creates an ingestion pipeline over the database. Options are
// applied after the database logger, so a WithLogger option wins.
func (db *Database) NewPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(db.logger)}, opts...)
	return ingestion.NewPipeline(db.store.Entities, db.store.Relationships, db.store.Runs, opts...)
}

func (db *Database) NewPromoter(opts ...promote.Option) (*promote.Promoter, error) {
	opts = append([]promote.Option{promote.WithLogger(db.logger)}, opts...)
	return promote.NewPromoter(db.store.Entities, db.store.Relationships, db.store.History, opts...)
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger)}, opts...)
	return search.NewSearcher(db.store.Entities, opts...)
}
