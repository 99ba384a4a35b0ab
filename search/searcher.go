package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/storage"
)

const (
	// DefaultLimit is used when a query sets no limit.
	DefaultLimit = 20
	// MaxLimit caps every query.
	MaxLimit = 100
)

// Query selects entities.
type Query struct {
	Text string
	// Owner restricts results to one owner. Empty searches every owner.
	Owner      string
	Categories []core.Category
	States     []core.SemanticState
	Limit      int
}

// Searcher finds entities by text.
type Searcher struct {
	entityRepository storage.EntityRepository
	logger           *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(entityRepository storage.EntityRepository, opts ...Option) (*Searcher, error) {
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}

	s := &Searcher{
		entityRepository: entityRepository,
		logger:           slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// Search returns entities matching q, most recently updated first.
func (s *Searcher) Search(ctx context.Context, q Query) ([]*core.Entity, error) {
	return s.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, q Query, monitor SearchMonitor) ([]*core.Entity, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyQuery
	}
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	monitor.Start(q)

	var (
		candidates []*core.Entity
		err        error
	)
	if q.Owner != "" {
		candidates, err = s.entityRepository.GetEntitiesByOwner(ctx, q.Owner)
	} else {
		candidates, err = s.entityRepository.GetAllEntities(ctx)
	}
	if err != nil {
		s.logger.Error("error retrieving entities", "owner", q.Owner, "err", err)
		return nil, err
	}
	monitor.AfterCandidateRetrieval(candidates)

	needle := strings.ToLower(text)
	queryWords := tokenizeAndFilter(text)

	results := make([]*core.Entity, 0)
	for _, entity := range candidates {
		if len(q.Categories) > 0 && !slices.Contains(q.Categories, entity.Category) {
			continue
		}
		if len(q.States) > 0 && !slices.Contains(q.States, entity.State) {
			continue
		}

		var matchedOn string
		switch {
		case strings.Contains(strings.ToLower(entity.Name), needle):
			matchedOn = MatchName
		case strings.Contains(strings.ToLower(entity.Description), needle):
			matchedOn = MatchDescription
		case containsAllWords(wordSet(entity.Name, entity.Description), queryWords):
			matchedOn = MatchWords
		default:
			continue
		}
		monitor.Hit(entity, matchedOn)
		results = append(results, entity)
	}

	// Most recent first; IDs break ties so equal timestamps order stably
	slices.SortFunc(results, func(a, b *core.Entity) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		switch {
		case a.Id > b.Id:
			return -1
		case a.Id < b.Id:
			return 1
		}
		return 0
	})
	if len(results) > limit {
		results = results[:limit]
	}

	s.logger.Debug("search complete", "query", text, "candidates", len(candidates), "results", len(results))
	monitor.Finish(results)
	return results, nil
}
