package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/kgingest/conversation"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/extract"
	"github.com/poiesic/kgingest/lakesync"
	"github.com/poiesic/kgingest/metrics"
	"github.com/poiesic/kgingest/relate"
	"github.com/poiesic/kgingest/storage"
	"github.com/poiesic/kgingest/vocab"
)

const (
	// DefaultOwner owns entities when no owner is configured.
	DefaultOwner = "default"
	// DefaultSyncTimeout bounds each lake sync attempt.
	DefaultSyncTimeout = 10 * time.Second

	sourceType = "conversation"
	syncSource = "kgingest"
)

// Pipeline orchestrates the ingestion of conversation files into the store.
type Pipeline struct {
	entities      storage.EntityRepository
	relationships storage.RelationshipRepository
	runs          storage.RunRepository

	validator *conversation.FileValidator
	parser    *conversation.Parser
	extractor *extract.Extractor
	builder   *relate.Builder

	vocab       *vocab.Tables
	owner       string
	maxFileSize int64
	syncer      lakesync.Syncer
	syncTimeout time.Duration
	metrics     *metrics.Recorder
	logger      *slog.Logger

	// commitMu serializes the read-plan-write half of every run.
	commitMu sync.Mutex
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithOwner sets the owner of created entities and the scope of
// duplicate detection. Default is DefaultOwner.
func WithOwner(owner string) Option {
	return func(p *Pipeline) error {
		if owner == "" {
			return fmt.Errorf("owner must not be empty")
		}
		p.owner = owner
		return nil
	}
}

// WithVocabulary replaces the built-in extraction vocabulary.
func WithVocabulary(tables *vocab.Tables) Option {
	return func(p *Pipeline) error {
		if tables == nil {
			return fmt.Errorf("vocabulary is nil")
		}
		p.vocab = tables
		return nil
	}
}

// WithSyncer mirrors successful live runs to syncer.
func WithSyncer(syncer lakesync.Syncer) Option {
	return func(p *Pipeline) error {
		p.syncer = syncer
		return nil
	}
}

// WithSyncTimeout bounds each sync attempt. Default is DefaultSyncTimeout.
func WithSyncTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return fmt.Errorf("sync timeout must be positive, got %s", d)
		}
		p.syncTimeout = d
		return nil
	}
}

// WithMetrics records run metrics into recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(p *Pipeline) error {
		p.metrics = recorder
		return nil
	}
}

// WithMaxFileSize overrides conversation.DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return fmt.Errorf("max file size must be positive, got %d", n)
		}
		p.maxFileSize = n
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	entities storage.EntityRepository,
	relationships storage.RelationshipRepository,
	runs storage.RunRepository,
	opts ...Option,
) (*Pipeline, error) {
	if entities == nil || relationships == nil || runs == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		entities:      entities,
		relationships: relationships,
		runs:          runs,
		vocab:         vocab.Default(),
		owner:         DefaultOwner,
		maxFileSize:   conversation.DefaultMaxFileSize,
		syncTimeout:   DefaultSyncTimeout,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	// Components are built after options so they share the final vocabulary and logger
	var err error
	p.validator = conversation.NewFileValidator(conversation.WithMaxFileSize(p.maxFileSize))
	p.parser, err = conversation.NewParser(
		conversation.WithLogger(p.logger),
		conversation.WithVocabulary(p.vocab),
	)
	if err != nil {
		return nil, err
	}
	p.extractor, err = extract.NewExtractor(
		extract.WithLogger(p.logger),
		extract.WithVocabulary(p.vocab),
	)
	if err != nil {
		return nil, err
	}
	p.builder, err = relate.NewBuilder(
		relate.WithLogger(p.logger),
		relate.WithVocabulary(p.vocab),
	)
	if err != nil {
		return nil, err
	}

	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Parser returns the pipeline's conversation parser.
func (p *Pipeline) Parser() *conversation.Parser {
	return p.parser
}

// Ingest runs one file through the pipeline.
//
// The returned Result is never nil. A stage failure returns a *StageError.
// A live run over an already-ingested source without Force returns
// ErrAlreadyIngested with Result.AlreadyIngested set and writes nothing.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	prep, err := p.prepare(ctx, req)
	return p.complete(ctx, req, prep, err)
}

// prepared holds everything computed for a file before the store is read.
type prepared struct {
	req           Request
	sourceID      string
	contentHash   string
	conv          *conversation.Conversation
	entities      []core.ExtractedEntity
	relationships []core.InferredRelationship
}

// prepare validates, parses, extracts and infers. It touches no store
// state and is safe to call concurrently.
func (p *Pipeline) prepare(ctx context.Context, req Request) (*prepared, error) {
	sourceID, err := SourceID(req.FilePath)
	if err != nil {
		return nil, stageError(StageValidation, req.FilePath, err)
	}

	start := time.Now()
	content, err := p.validator.Read(req.FilePath)
	p.metrics.ObserveStage(string(StageValidation), start)
	if err != nil {
		return nil, stageError(StageValidation, req.FilePath, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageError(StageParse, req.FilePath, err)
	}
	start = time.Now()
	conv, err := p.parser.Parse(req.FilePath, content)
	p.metrics.ObserveStage(string(StageParse), start)
	if err != nil {
		return nil, stageError(StageParse, req.FilePath, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, stageError(StageExtract, req.FilePath, err)
	}
	start = time.Now()
	chunks := make([]string, len(conv.Chunks))
	for i, c := range conv.Chunks {
		chunks[i] = c.Content
	}
	entities := p.extractor.ExtractAll(chunks)
	relationships := p.builder.Infer(entities, conv.Text)
	p.metrics.ObserveStage(string(StageExtract), start)

	p.logger.Debug("prepared conversation", "path", req.FilePath, "format", conv.Metadata.Format,
		"chunks", len(conv.Chunks), "entities", len(entities), "relationships", len(relationships))

	return &prepared{
		req:           req,
		sourceID:      sourceID,
		contentHash:   core.ContentHash(content),
		conv:          conv,
		entities:      entities,
		relationships: relationships,
	}, nil
}

// complete commits a prepared file, or reports its preparation failure,
// and records the run outcome.
func (p *Pipeline) complete(ctx context.Context, req Request, prep *prepared, prepErr error) (*Result, error) {
	var (
		res *Result
		err = prepErr
	)
	if err == nil {
		res, err = p.commit(ctx, prep)
	}
	if res == nil {
		res = &Result{DryRun: req.DryRun}
		if prep != nil {
			res.SourceID = prep.sourceID
		}
	}

	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, ErrAlreadyIngested):
		outcome = metrics.OutcomeAlreadyIngested
	case err != nil:
		outcome = metrics.OutcomeFailed
		res.Success = false
		res.Message = err.Error()
		p.logger.Error("ingestion failed", "path", req.FilePath, "err", err)
	case req.DryRun:
		outcome = metrics.OutcomeDryRun
	}
	p.metrics.RunFinished(outcome)
	return res, err
}

func (p *Pipeline) commit(ctx context.Context, prep *prepared) (*Result, error) {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	req := prep.req
	res := &Result{
		DryRun:      req.DryRun,
		SourceID:    prep.sourceID,
		ContentHash: prep.contentHash,
		Metadata:    prep.conv.Metadata,
	}

	existing, err := p.entities.FindEntitiesBySource(ctx, prep.sourceID)
	if err != nil {
		return nil, stageError(StageInsert, req.FilePath, err)
	}
	lastRun, err := p.runs.LoadRun(ctx, prep.sourceID)
	if err != nil {
		return nil, stageError(StageInsert, req.FilePath, err)
	}

	res.AlreadyIngested = len(existing) > 0 || lastRun != nil
	if lastRun != nil && lastRun.ContentHash != prep.contentHash {
		res.Warnings = append(res.Warnings, "content changed since the last ingestion of this source")
	}
	if res.AlreadyIngested && !req.Force && !req.DryRun {
		res.Message = fmt.Sprintf("%s already ingested with %d entities; use force to re-ingest",
			prep.sourceID, len(existing))
		p.logger.Info("source already ingested", "source", prep.sourceID, "entities", len(existing))
		return res, ErrAlreadyIngested
	}

	snapshot, err := p.entities.GetEntitiesByOwner(ctx, p.owner)
	if err != nil {
		return nil, stageError(StageInsert, req.FilePath, err)
	}
	if req.Force {
		snapshot = excludeSource(snapshot, prep.sourceID)
	}

	start := time.Now()
	pl := buildPlan(prep.entities, prep.relationships, snapshot)
	p.metrics.ObserveStage("plan", start)
	res.Warnings = append(res.Warnings, pl.warnings...)

	if req.DryRun {
		res.Success = true
		res.Preview = pl.preview()
		res.WouldCreate = len(pl.create)
		res.WouldSkip = len(pl.skipped)
		res.WouldRelate = len(pl.links)
		if res.AlreadyIngested && !req.Force {
			res.Warnings = append(res.Warnings, "source already ingested; a live run requires force")
		}
		res.Message = fmt.Sprintf("dry run: would create %d entities and %d relationships, skip %d",
			res.WouldCreate, res.WouldRelate, res.WouldSkip)
		return res, nil
	}

	return p.persist(ctx, prep, pl, res)
}

func (p *Pipeline) persist(ctx context.Context, prep *prepared, pl *plan, res *Result) (*Result, error) {
	req := prep.req
	meta := prep.conv.Metadata
	runID := uuid.NewString()

	start := time.Now()
	if req.Force && res.AlreadyIngested {
		removed, err := p.entities.DeleteEntitiesBySource(ctx, prep.sourceID)
		if err != nil {
			return nil, stageError(StageInsert, req.FilePath, err)
		}
		p.logger.Info("removed previous entities", "source", prep.sourceID, "entities", removed)
	}

	state := core.StateRaw
	if req.AutoPromote {
		state = core.StateDraft
	}

	for _, ent := range pl.create {
		ent.OwnerID = p.owner
		ent.State = state
		ent.SourceType = sourceType
		ent.SourceID = prep.sourceID
		ent.SourceURL = "file://" + filepath.ToSlash(prep.sourceID)
		ent.Properties = map[string]string{
			"sourceContext":    ent.Excerpt,
			"format":           string(meta.Format),
			"conversationDate": meta.Date.Format(time.DateOnly),
			"runId":            runID,
		}
	}
	if len(pl.create) > 0 {
		if _, err := p.entities.AddEntities(ctx, pl.create...); err != nil {
			return nil, stageError(StageInsert, req.FilePath, err)
		}
	}
	res.EntitiesCreated = len(pl.create)
	res.EntitiesSkipped = len(pl.skipped)

	for _, msg := range pl.unresolved {
		res.Warnings = append(res.Warnings, msg)
		res.RelationshipsSkipped++
	}

	var linked []link
	for _, l := range pl.links {
		rel := &core.Relationship{
			FromID:     l.from.Id,
			ToID:       l.to.Id,
			Type:       l.rel.Type,
			Weight:     l.rel.Weight,
			State:      state,
			Confidence: l.rel.Confidence,
			Excerpt:    l.rel.Excerpt,
			Properties: map[string]string{"runId": runID},
		}
		if _, err := p.relationships.AddRelationships(ctx, rel); err != nil {
			p.logger.Warn("relationship insert failed", "from", l.rel.From, "to", l.rel.To, "type", l.rel.Type, "err", err)
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("relationship %s -[%s]-> %s: %v", l.rel.From, l.rel.Type, l.rel.To, err))
			res.RelationshipsSkipped++
			continue
		}
		linked = append(linked, l)
	}
	res.RelationshipsCreated = len(linked)
	p.metrics.ObserveStage("persist", start)

	p.metrics.EntitiesCreated(res.EntitiesCreated)
	p.metrics.EntitiesSkipped(res.EntitiesSkipped)
	p.metrics.RelationshipsCreated(res.RelationshipsCreated)
	p.metrics.RelationshipsFailed(res.RelationshipsSkipped)

	err := p.runs.SaveRun(ctx, &core.SourceRun{
		SourceID:             prep.sourceID,
		RunID:                runID,
		ContentHash:          prep.contentHash,
		EntitiesCreated:      res.EntitiesCreated,
		RelationshipsCreated: res.RelationshipsCreated,
	})
	if err != nil {
		p.logger.Warn("failed to record source run", "source", prep.sourceID, "err", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("source run not recorded: %v", err))
	}

	res.Success = true
	res.RunID = runID
	res.SyncAttempted, res.Synced = p.sync(ctx, prep, pl.create, linked, runID)
	res.Message = fmt.Sprintf("created %d entities and %d relationships, skipped %d entities",
		res.EntitiesCreated, res.RelationshipsCreated, res.EntitiesSkipped)

	p.logger.Info("ingestion complete", "source", prep.sourceID, "run", runID,
		"entities", res.EntitiesCreated, "relationships", res.RelationshipsCreated,
		"skipped", res.EntitiesSkipped, "synced", res.Synced)
	return res, nil
}

// sync mirrors the run to the lake. Failures are logged and reported only
// through the returned flag.
func (p *Pipeline) sync(ctx context.Context, prep *prepared, created []*core.Entity, linked []link, runID string) (attempted, ok bool) {
	if p.syncer == nil {
		p.metrics.Sync(metrics.SyncDisabled)
		return false, false
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, p.syncTimeout)
	defer cancel()

	err := p.syncer.Sync(ctx, buildPayload(p.owner, prep, created, linked, runID))
	p.metrics.ObserveStage("sync", start)
	if err != nil {
		p.logger.Warn("lake sync failed", "source", prep.sourceID, "err", err)
		p.metrics.Sync(metrics.SyncFailed)
		return true, false
	}
	p.metrics.Sync(metrics.SyncOK)
	return true, true
}

func buildPayload(owner string, prep *prepared, created []*core.Entity, linked []link, runID string) *lakesync.Payload {
	meta := prep.conv.Metadata
	payload := &lakesync.Payload{
		OwnerID:          owner,
		Topic:            meta.Topic,
		Content:          prep.conv.Text,
		ConversationDate: meta.Date,
		Entities:         make([]lakesync.Entity, len(created)),
		Relationships:    make([]lakesync.Relationship, len(linked)),
		Metadata: lakesync.Metadata{
			Source:       syncSource,
			SourceFile:   prep.sourceID,
			Format:       string(meta.Format),
			Agent:        meta.Agent,
			Participants: meta.Participants,
			RunID:        runID,
			ContentHash:  prep.contentHash,
		},
	}
	for i, ent := range created {
		payload.Entities[i] = lakesync.Entity{
			Name:          ent.Name,
			EntityType:    string(ent.Category),
			Confidence:    ent.Confidence,
			Description:   ent.Description,
			SourceContext: ent.Excerpt,
		}
	}
	for i, l := range linked {
		payload.Relationships[i] = lakesync.Relationship{
			From:             l.from.Name,
			To:               l.to.Name,
			RelationshipType: l.rel.Type,
			Weight:           l.rel.Weight,
			Confidence:       l.rel.Confidence,
		}
	}
	return payload
}

// SourceID returns the re-ingestion key for a file: its cleaned absolute path.
func SourceID(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file path is empty")
	}
	return filepath.Abs(path)
}

func excludeSource(entities []*core.Entity, sourceID string) []*core.Entity {
	out := entities[:0:0]
	for _, ent := range entities {
		if ent.SourceID != sourceID {
			out = append(out, ent)
		}
	}
	return out
}
