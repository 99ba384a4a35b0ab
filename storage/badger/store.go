package badger

import (
	"errors"
)

// Store bundles the repositories that share one Backend.
type Store struct {
	Backend       *Backend
	Entities      *EntityRepository
	Relationships *RelationshipRepository
	History       *HistoryRepository
	Runs          *RunRepository
}

// OpenStore opens a backend at filePath and creates every repository on it.
func OpenStore(filePath string, inMemory bool) (*Store, error) {
	backend, err := OpenBackend(filePath, inMemory)
	if err != nil {
		return nil, err
	}

	history, err := NewHistoryRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	entities, err := NewEntityRepository(backend, history)
	if err != nil {
		history.Close()
		backend.Close()
		return nil, err
	}

	relationships, err := NewRelationshipRepository(backend, history)
	if err != nil {
		entities.Close()
		history.Close()
		backend.Close()
		return nil, err
	}

	return &Store{
		Backend:       backend,
		Entities:      entities,
		Relationships: relationships,
		History:       history,
		Runs:          NewRunRepository(backend),
	}, nil
}

// Close releases the repository sequences and then closes the backend.
func (s *Store) Close() error {
	var errs []error
	if err := s.Relationships.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Entities.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.History.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Backend.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
