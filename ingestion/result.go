package ingestion

import (
	"github.com/poiesic/kgingest/conversation"
	"github.com/poiesic/kgingest/core"
)

// Request describes one ingestion run.
type Request struct {
	FilePath    string
	DryRun      bool // plan only, write nothing
	AutoPromote bool // create entities and relationships as DRAFT instead of RAW
	Force       bool // replace the source's existing entities
}

// Skip records a candidate entity that was not written.
type Skip struct {
	Name     string
	Category core.Category
	Reason   string
}

// Preview is the dry-run view of what a live run would write.
type Preview struct {
	Entities      []core.ExtractedEntity
	Relationships []core.InferredRelationship
	Skipped       []Skip
}

// Result is the outcome of one ingestion run.
type Result struct {
	Success         bool
	DryRun          bool
	AlreadyIngested bool
	SourceID        string
	RunID           string
	ContentHash     string
	Metadata        conversation.Metadata

	EntitiesCreated      int
	EntitiesSkipped      int
	RelationshipsCreated int
	RelationshipsSkipped int

	// Dry-run counts.
	WouldCreate int
	WouldSkip   int
	WouldRelate int
	Preview     *Preview

	SyncAttempted bool
	Synced        bool

	Warnings []string
	Message  string
}
