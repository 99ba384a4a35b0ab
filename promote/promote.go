// Package promote moves entities and relationships forward through the
// semantic states RAW, DRAFT, COOKED and CANONICAL.
//
// Promotion may skip states but never goes backwards or stays in place.
// Only admin actors may promote to CANONICAL. Every successful promotion
// appends exactly one history entry in the same store transaction as the
// state change.
package promote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/storage"
)

// Request describes one promotion.
type Request struct {
	ID     core.ID
	Target core.SemanticState
	Actor  core.Actor
	Reason string
}

// Promoter applies semantic state promotions.
type Promoter struct {
	entities      storage.EntityRepository
	relationships storage.RelationshipRepository
	history       storage.HistoryRepository
	logger        *slog.Logger
}

// Option configures a Promoter.
type Option func(*Promoter) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Promoter) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPromoter creates a new promoter.
func NewPromoter(
	entities storage.EntityRepository,
	relationships storage.RelationshipRepository,
	history storage.HistoryRepository,
	opts ...Option,
) (*Promoter, error) {
	if entities == nil || relationships == nil || history == nil {
		return nil, ErrRepositoryRequired
	}

	p := &Promoter{
		entities:      entities,
		relationships: relationships,
		history:       history,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "promoter")
	return p, nil
}

// PromoteEntity moves an entity to req.Target.
func (p *Promoter) PromoteEntity(ctx context.Context, req Request) (*core.Entity, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	entity, err := p.entities.GetEntity(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := checkForward(core.TargetEntity, req.ID, entity.State, req.Target); err != nil {
		return nil, err
	}

	updated, err := p.entities.TransitionEntity(ctx, req.ID, entity.State, req.Target, newEntry(req))
	if err != nil {
		return nil, transitionError(err)
	}

	p.logger.Info("entity promoted", "id", req.ID, "from", entity.State, "to", req.Target, "actor", req.Actor.ID)
	return updated, nil
}

// PromoteRelationship moves a relationship to req.Target. A relationship's
// state is independent of the states of its endpoints.
func (p *Promoter) PromoteRelationship(ctx context.Context, req Request) (*core.Relationship, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	rel, err := p.relationships.GetRelationship(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if err := checkForward(core.TargetRelationship, req.ID, rel.State, req.Target); err != nil {
		return nil, err
	}

	updated, err := p.relationships.TransitionRelationship(ctx, req.ID, rel.State, req.Target, newEntry(req))
	if err != nil {
		return nil, transitionError(err)
	}

	p.logger.Info("relationship promoted", "id", req.ID, "from", rel.State, "to", req.Target, "actor", req.Actor.ID)
	return updated, nil
}

// History returns the transitions of one entity or relationship, newest first.
func (p *Promoter) History(ctx context.Context, target core.TargetKind, id core.ID) ([]*core.HistoryEntry, error) {
	return p.history.GetHistory(ctx, target, id)
}

// checkRequest runs the checks that do not depend on current state, so a
// member targeting CANONICAL is refused whatever the target's state is.
func checkRequest(req Request) error {
	if err := core.ValidateSemanticState(req.Target); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	if req.Actor.ID == "" {
		return ErrActorRequired
	}
	if req.Target == core.StateCanonical && !req.Actor.IsAdmin() {
		return fmt.Errorf("%w: only admins may promote to %s", ErrPermissionDenied, core.StateCanonical)
	}
	return nil
}

func checkForward(kind core.TargetKind, id core.ID, current, target core.SemanticState) error {
	if !current.Before(target) {
		return fmt.Errorf("%w: %s %d is %s, cannot move to %s", ErrInvalidTransition, kind, id, current, target)
	}
	return nil
}

func newEntry(req Request) *core.HistoryEntry {
	return &core.HistoryEntry{
		ActorID: req.Actor.ID,
		Reason:  req.Reason,
	}
}

// transitionError reports a lost compare-and-set as an invalid transition;
// the state read before the transition is no longer current.
func transitionError(err error) error {
	if errors.Is(err, storage.ErrStateConflict) {
		return fmt.Errorf("%w: %w", ErrInvalidTransition, err)
	}
	return err
}
