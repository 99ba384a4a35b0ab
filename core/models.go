package core

//go:generate go run ../cmd/musgen

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted graph items, drawn from
// database sequences.
type ID uint64

// ContentHash returns the hex encoded BLAKE2b-256 digest of data.
// Used to fingerprint ingested sources so content changes can be detected.
func ContentHash(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Category is the closed set of entity kinds in the knowledge graph.
type Category string

const (
	CategoryAgents             Category = "Agents"
	CategoryTechnology         Category = "Technology"
	CategoryExecutiveAI        Category = "ExecutiveAI" // projects
	CategoryConsulting         Category = "Consulting"
	CategoryClientIntelligence Category = "ClientIntelligence"
	CategoryContent            Category = "Content"
)

// Categories lists every valid Category in display order.
var Categories = []Category{
	CategoryAgents,
	CategoryTechnology,
	CategoryExecutiveAI,
	CategoryConsulting,
	CategoryClientIntelligence,
	CategoryContent,
}

// SemanticState is the curation tier of an entity or relationship.
// States only move forward: RAW, DRAFT, COOKED, CANONICAL.
type SemanticState string

const (
	StateRaw       SemanticState = "RAW"
	StateDraft     SemanticState = "DRAFT"
	StateCooked    SemanticState = "COOKED"
	StateCanonical SemanticState = "CANONICAL"
)

// SemanticStates lists every valid state in promotion order.
var SemanticStates = []SemanticState{StateRaw, StateDraft, StateCooked, StateCanonical}

// Rank returns the position of s in the promotion order, or -1 if s is unknown.
func (s SemanticState) Rank() int {
	for i, state := range SemanticStates {
		if state == s {
			return i
		}
	}
	return -1
}

// Before reports whether s comes strictly earlier than other in the promotion order.
func (s SemanticState) Before(other SemanticState) bool {
	r := s.Rank()
	return r >= 0 && r < other.Rank()
}

// Role is the privilege level of an actor performing a promotion.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Actor identifies who is changing graph state.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor holds elevated privileges.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// TargetKind distinguishes history entries for entities and relationships.
type TargetKind int

const (
	// TargetEntity marks a history entry that refers to an entity.
	TargetEntity TargetKind = iota + 1
	// TargetRelationship marks a history entry that refers to a relationship.
	TargetRelationship
)

func (k TargetKind) String() string {
	switch k {
	case TargetEntity:
		return "entity"
	case TargetRelationship:
		return "relationship"
	default:
		return "unknown"
	}
}

// ExtractedEntity is an entity candidate found in conversation text.
// It has no database identity yet.
type ExtractedEntity struct {
	Category    Category
	Name        string
	Description string
	Confidence  float64
	Excerpt     string
}

// Key returns the run-level identity of the candidate: category plus lowercase name.
func (e *ExtractedEntity) Key() string {
	return string(e.Category) + ":" + NameKey(e.Name)
}

// InferredRelationship is a relationship candidate that references its
// endpoints by name until they are resolved to persisted IDs.
type InferredRelationship struct {
	From       string
	To         string
	Type       string
	Confidence float64
	Weight     int
	Excerpt    string
}

// Key returns the dedupe key "from:type:to".
func (r *InferredRelationship) Key() string {
	return r.From + ":" + r.Type + ":" + r.To
}

// Entity is a persisted knowledge-graph node.
type Entity struct {
	Id          ID
	OwnerID     string
	Category    Category
	Name        string
	Description string
	State       SemanticState
	Confidence  float64
	Excerpt     string            // Text surrounding the match that produced this entity
	Properties  map[string]string // Optional free-form properties
	SourceType  string            // e.g. "conversation"
	SourceID    string            // Re-ingestion key, the source file path for conversations
	SourceURL   string
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// Relationship is a persisted, typed and weighted edge between two entities.
// Its semantic state is independent of its endpoints.
type Relationship struct {
	Id         ID
	FromID     ID
	ToID       ID
	Type       string
	Weight     int
	State      SemanticState
	Confidence float64
	Excerpt    string
	Properties map[string]string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// HistoryEntry is an append-only record of one semantic state transition.
type HistoryEntry struct {
	Id            ID
	Target        TargetKind
	TargetID      ID
	PreviousState SemanticState
	NewState      SemanticState
	ActorID       string
	Reason        string
	CreatedAt     time.Time
}

// SourceRun records the outcome of the last live ingestion of a source.
type SourceRun struct {
	SourceID             string
	RunID                string
	ContentHash          string
	EntitiesCreated      int
	RelationshipsCreated int
	CompletedAt          time.Time
}
