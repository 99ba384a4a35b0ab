// Package lakesync mirrors ingested conversations into secondary stores.
// Syncing is best effort: callers bound each attempt with a timeout and
// record the outcome without failing the ingestion run.
package lakesync

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSyncFailed wraps every error returned by a Syncer.
	ErrSyncFailed = errors.New("sync failed")
	// ErrUnexpectedStatus is returned for non-2xx HTTP responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

// Syncer pushes one conversation and its graph fragment to a remote store.
type Syncer interface {
	Sync(ctx context.Context, payload *Payload) error
}

// Payload is the conversation record sent to remote stores.
type Payload struct {
	OwnerID          string         `json:"userId"`
	Topic            string         `json:"topic"`
	Content          string         `json:"content"`
	ConversationDate time.Time      `json:"conversationDate"`
	Entities         []Entity       `json:"entities"`
	Relationships    []Relationship `json:"relationships"`
	Metadata         Metadata       `json:"metadata"`
}

// Entity is an entity as seen by remote stores.
type Entity struct {
	Name          string  `json:"name"`
	EntityType    string  `json:"entityType"`
	Confidence    float64 `json:"confidence"`
	Description   string  `json:"description,omitempty"`
	SourceContext string  `json:"sourceContext,omitempty"`
}

// Relationship is a relationship as seen by remote stores. Endpoints are
// entity names.
type Relationship struct {
	From             string  `json:"from"`
	To               string  `json:"to"`
	RelationshipType string  `json:"relationshipType"`
	Weight           int     `json:"weight"`
	Confidence       float64 `json:"confidence"`
}

// Metadata carries provenance for the synced conversation.
type Metadata struct {
	Source       string   `json:"source"`
	SourceFile   string   `json:"sourceFile"`
	Format       string   `json:"format"`
	Agent        string   `json:"agent,omitempty"`
	Participants []string `json:"participants,omitempty"`
	RunID        string   `json:"runId"`
	ContentHash  string   `json:"contentHash"`
}

// Multi fans a payload out to several syncers in order. Every syncer is
// attempted; the errors are joined.
type Multi []Syncer

// Sync calls every syncer and joins their errors.
func (m Multi) Sync(ctx context.Context, payload *Payload) error {
	var errs []error
	for _, s := range m {
		if err := s.Sync(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Func adapts a function to the Syncer interface.
type Func func(ctx context.Context, payload *Payload) error

// Sync calls f.
func (f Func) Sync(ctx context.Context, payload *Payload) error {
	return f(ctx, payload)
}

// Unavailable returns a Syncer whose every sync fails with err. It stands in
// for a sink that could not be constructed so the failure is reported per
// run instead of aborting ingestion.
func Unavailable(err error) Syncer {
	return Func(func(context.Context, *Payload) error {
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	})
}
