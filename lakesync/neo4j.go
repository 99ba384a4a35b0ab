package lakesync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	mergeConversation = `
		MERGE (c:Conversation {owner: $owner, sourceFile: $sourceFile})
		SET c.topic = $topic,
		    c.date = $date,
		    c.format = $format,
		    c.runId = $runId,
		    c.contentHash = $contentHash,
		    c.updatedAt = timestamp()
	`

	mergeEntities = `
		MATCH (c:Conversation {owner: $owner, sourceFile: $sourceFile})
		UNWIND $entities AS e
		MERGE (n:Entity {owner: $owner, name: e.name})
		SET n.type = e.entityType,
		    n.confidence = e.confidence,
		    n.description = e.description,
		    n.updatedAt = timestamp()
		MERGE (c)-[:MENTIONS]->(n)
	`

	mergeRelationships = `
		UNWIND $relationships AS r
		MATCH (a:Entity {owner: $owner, name: r.from})
		MATCH (b:Entity {owner: $owner, name: r.to})
		MERGE (a)-[rel:RELATES {type: r.relationshipType}]->(b)
		SET rel.weight = r.weight,
		    rel.confidence = r.confidence,
		    rel.updatedAt = timestamp()
	`
)

// Neo4jConfig describes a Neo4j connection.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string

	// ConnectAttempts and ConnectDelay control the connectivity check made
	// before the first sync. Individual syncs are never retried.
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// Neo4jSyncer merges conversations, entities and relationships into a
// Neo4j graph keyed by owner and name.
type Neo4jSyncer struct {
	driver   neo4j.DriverWithContext
	database string
	uri      string
	attempts int
	delay    time.Duration
	verified atomic.Bool
	logger   *slog.Logger
}

// NewNeo4jSyncer creates the driver without contacting the server.
// Connectivity is verified, with backoff, on the first Sync so an
// unreachable server only fails syncs.
func NewNeo4jSyncer(cfg Neo4jConfig, logger *slog.Logger) (*Neo4jSyncer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "lake-neo4j")
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = 3
	}
	if cfg.ConnectDelay <= 0 {
		cfg.ConnectDelay = 200 * time.Millisecond
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	return &Neo4jSyncer{
		driver:   driver,
		database: cfg.Database,
		uri:      cfg.URI,
		attempts: cfg.ConnectAttempts,
		delay:    cfg.ConnectDelay,
		logger:   logger,
	}, nil
}

// verify checks connectivity once per syncer. A failed check is repeated
// on the next Sync.
func (s *Neo4jSyncer) verify(ctx context.Context) error {
	if s.verified.Load() {
		return nil
	}
	err := retryWithBackoff(ctx, s.logger, s.attempts, s.delay, func() error {
		return s.driver.VerifyConnectivity(ctx)
	})
	if err != nil {
		return fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	s.verified.Store(true)
	s.logger.Info("neo4j syncer connected", "uri", s.uri, "database", s.database)
	return nil
}

// Sync merges the conversation node, its entities and their relationships
// in one write transaction.
func (s *Neo4jSyncer) Sync(ctx context.Context, payload *Payload) error {
	if err := s.verify(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	params := cypherParams(payload)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, query := range []string{mergeConversation, mergeEntities, mergeRelationships} {
			if _, err := tx.Run(ctx, query, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: neo4j: %w", ErrSyncFailed, err)
	}

	s.logger.Debug("conversation merged", "source", payload.Metadata.SourceFile,
		"entities", len(payload.Entities), "relationships", len(payload.Relationships))
	return nil
}

// Close releases the driver.
func (s *Neo4jSyncer) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// cypherParams converts a payload into driver-native parameter values.
func cypherParams(p *Payload) map[string]any {
	entities := make([]map[string]any, len(p.Entities))
	for i, e := range p.Entities {
		entities[i] = map[string]any{
			"name":        e.Name,
			"entityType":  e.EntityType,
			"confidence":  e.Confidence,
			"description": e.Description,
		}
	}
	relationships := make([]map[string]any, len(p.Relationships))
	for i, r := range p.Relationships {
		relationships[i] = map[string]any{
			"from":             r.From,
			"to":               r.To,
			"relationshipType": r.RelationshipType,
			"weight":           int64(r.Weight),
			"confidence":       r.Confidence,
		}
	}
	return map[string]any{
		"owner":         p.OwnerID,
		"sourceFile":    p.Metadata.SourceFile,
		"topic":         p.Topic,
		"date":          p.ConversationDate.UTC().Format(time.RFC3339),
		"format":        p.Metadata.Format,
		"runId":         p.Metadata.RunID,
		"contentHash":   p.Metadata.ContentHash,
		"entities":      entities,
		"relationships": relationships,
	}
}
