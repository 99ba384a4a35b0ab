package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/kgingest/conversation"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/ingestion"
	"github.com/poiesic/kgingest/promote"
	"github.com/poiesic/kgingest/search"
	"github.com/urfave/cli/v2"
)

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	pipeline, err := e.pipeline()
	if err != nil {
		return err
	}

	req := requestFromFlags(c)
	req.FilePath = c.Args().First()

	res, err := pipeline.Ingest(ctx, req)
	out := c.App.Writer
	switch {
	case errors.Is(err, ingestion.ErrAlreadyIngested):
		printWarnings(out, res.Warnings)
		fmt.Fprintf(out, "Already ingested: %s\n", res.Message)
		return nil
	case err != nil:
		var stageErr *ingestion.StageError
		if errors.As(err, &stageErr) {
			return cli.Exit(fmt.Sprintf("ingestion failed at %s: %v", stageErr.Stage, stageErr.Err), 1)
		}
		return cli.Exit(fmt.Sprintf("ingestion failed: %v", err), 1)
	}

	printResult(out, res)
	return nil
}

func batchCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one directory argument")
	}
	dir := c.Args().First()

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	paths, err := ingestion.CollectFiles(dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dir, err)
	}
	out := c.App.Writer
	if len(paths) == 0 {
		fmt.Fprintf(out, "No .md files in %s\n", dir)
		return nil
	}

	pipeline, err := e.pipeline()
	if err != nil {
		return err
	}

	concurrency := e.cfg.Batch.Concurrency
	if c.IsSet("concurrency") {
		concurrency = c.Int("concurrency")
	}
	if concurrency <= 0 {
		return fmt.Errorf("concurrency must be greater than 0")
	}
	archiveDir := e.cfg.Batch.ArchiveDir
	if c.IsSet("archive-dir") {
		archiveDir = c.String("archive-dir")
	}

	batch, err := ingestion.NewBatch(pipeline,
		ingestion.WithConcurrency(concurrency),
		ingestion.WithArchiveDir(archiveDir),
		ingestion.WithProgress(c.App.ErrWriter),
		ingestion.WithBatchLogger(e.logger),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", e.cfg.DB.Path)
	fmt.Fprintf(c.App.ErrWriter, "Files: %d\n\n", len(paths))

	summary, err := batch.Run(ctx, paths, requestFromFlags(c))
	if err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	for _, fr := range summary.Files {
		switch {
		case errors.Is(fr.Err, ingestion.ErrAlreadyIngested):
			fmt.Fprintf(out, "SKIP %s: already ingested\n", fr.Path)
		case fr.Err != nil:
			fmt.Fprintf(out, "FAIL %s: %v\n", fr.Path, fr.Err)
		default:
			fmt.Fprintf(out, "OK   %s: %s\n", fr.Path, fr.Result.Message)
			printWarnings(out, fr.Result.Warnings)
		}
	}
	fmt.Fprintf(out, "\n%d files: %d succeeded, %d failed, %d already ingested\n",
		summary.Total, summary.Succeeded, summary.Failed, summary.AlreadyIngested)
	fmt.Fprintf(out, "Created %d entities and %d relationships\n",
		summary.EntitiesCreated, summary.RelationshipsCreated)
	if summary.Synced+summary.SyncFailed > 0 {
		fmt.Fprintf(out, "Lake sync: %d ok, %d failed\n", summary.Synced, summary.SyncFailed)
	}

	if summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", summary.Failed, summary.Total), 1)
	}
	return nil
}

func ingestCSVCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one CSV file argument")
	}
	path := c.Args().First()

	sheet, err := ingestion.ReadSheetFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read %s: %v", path, err), 1)
	}
	out := c.App.Writer
	for _, skip := range sheet.Skipped {
		fmt.Fprintf(out, "skip row %d: %s\n", skip.Number, skip.Reason)
	}
	if len(sheet.Rows) == 0 {
		fmt.Fprintln(out, "No rows to ingest")
		return nil
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	pipeline, err := e.pipeline()
	if err != nil {
		return err
	}
	workDir := c.String("work-dir")
	if workDir == "" {
		workDir = strings.TrimSuffix(path, filepath.Ext(path)) + "-conversations"
	}
	importer, err := ingestion.NewSheetImport(pipeline, workDir, ingestion.WithSheetLogger(e.logger))
	if err != nil {
		return err
	}

	req := requestFromFlags(c)
	summary, err := importer.Run(ctx, sheet, req)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	for _, sr := range summary.Results {
		switch {
		case errors.Is(sr.Err, ingestion.ErrAlreadyIngested):
			fmt.Fprintf(out, "SKIP %s: already ingested\n", sr.Key)
		case sr.Err != nil:
			fmt.Fprintf(out, "FAIL %s (rows %v): %v\n", sr.Key, sr.Rows, sr.Err)
		default:
			fmt.Fprintf(out, "OK   %s: %s\n", sr.Key, sr.Result.Message)
			printWarnings(out, sr.Result.Warnings)
		}
	}
	fmt.Fprintf(out, "\n%d rows in %d conversations: %d succeeded, %d failed, %d already ingested\n",
		summary.Rows, summary.Conversations, summary.Succeeded, summary.Failed, summary.AlreadyIngested)
	if !req.DryRun {
		fmt.Fprintf(out, "Created %d entities and %d relationships\n",
			summary.EntitiesCreated, summary.RelationshipsCreated)
	}
	if summary.Synced+summary.SyncFailed > 0 {
		fmt.Fprintf(out, "Lake sync: %d ok, %d failed\n", summary.Synced, summary.SyncFailed)
	}

	if !req.DryRun && !c.Bool("no-update") && len(summary.Ingested) > 0 {
		if err := sheet.WriteFile(path); err != nil {
			return fmt.Errorf("failed to update %s: %w", path, err)
		}
		fmt.Fprintf(out, "Marked %d rows as ingested\n", len(summary.Ingested))
	}

	if summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d conversations failed", summary.Failed, summary.Conversations), 1)
	}
	return nil
}

func splitCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one dump file argument")
	}
	path := c.Args().First()

	cfg := configFrom(c)
	e := &env{cfg: cfg}
	tables, err := e.vocabulary()
	if err != nil {
		return err
	}
	parser, err := conversation.NewParser(conversation.WithVocabulary(tables))
	if err != nil {
		return err
	}

	entries, err := parser.SplitFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read %s: %v", path, err), 1)
	}
	out := c.App.Writer
	if len(entries) == 0 {
		fmt.Fprintf(out, "No conversations found in %s; expected ===, --- or *** between conversations\n", path)
		return nil
	}

	dir := c.String("out")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, entry := range entries {
		dest := filepath.Join(dir, entry.FileName(i+1))
		if err := os.WriteFile(dest, []byte(entry.Markdown()), 0644); err != nil {
			return cli.Exit(fmt.Sprintf("failed to write %s: %v", dest, err), 1)
		}
		date := entry.Date.Format(time.DateOnly)
		if entry.DateFallback {
			date += " (fallback)"
		}
		fmt.Fprintf(out, "%s  date=%s  topic=%s\n", dest, date, entry.Topic)
	}
	fmt.Fprintf(out, "\nWrote %d conversations to %s\n", len(entries), dir)
	return nil
}

// target reads --entity or --relationship. Exactly one must be set.
func target(c *cli.Context) (core.TargetKind, core.ID, error) {
	entity, rel := c.IsSet("entity"), c.IsSet("relationship")
	switch {
	case entity && rel:
		return 0, 0, fmt.Errorf("set only one of --entity and --relationship")
	case entity:
		return core.TargetEntity, core.ID(c.Uint64("entity")), nil
	case rel:
		return core.TargetRelationship, core.ID(c.Uint64("relationship")), nil
	default:
		return 0, 0, fmt.Errorf("one of --entity or --relationship is required")
	}
}

func promoteCommand(c *cli.Context) error {
	ctx := context.Background()

	kind, id, err := target(c)
	if err != nil {
		return err
	}
	state, err := core.ParseSemanticState(c.String("to"))
	if err != nil {
		return err
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	promoter, err := e.db.NewPromoter()
	if err != nil {
		return err
	}

	actor := e.cfg.Identity()
	if c.IsSet("actor") {
		actor.ID = c.String("actor")
	}
	req := promote.Request{ID: id, Target: state, Actor: actor, Reason: c.String("reason")}

	var from core.SemanticState
	if kind == core.TargetEntity {
		var ent *core.Entity
		if ent, err = e.db.EntityRepository().GetEntity(ctx, id); err == nil {
			from = ent.State
			_, err = promoter.PromoteEntity(ctx, req)
		}
	} else {
		var rel *core.Relationship
		if rel, err = e.db.RelationshipRepository().GetRelationship(ctx, id); err == nil {
			from = rel.State
			_, err = promoter.PromoteRelationship(ctx, req)
		}
	}
	if err != nil {
		return cli.Exit(fmt.Sprintf("promotion failed: %v", err), 1)
	}

	fmt.Fprintf(c.App.Writer, "Promoted %s %d from %s to %s\n", kind, id, from, state)
	return nil
}

func historyCommand(c *cli.Context) error {
	ctx := context.Background()

	kind, id, err := target(c)
	if err != nil {
		return err
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	promoter, err := e.db.NewPromoter()
	if err != nil {
		return err
	}
	entries, err := promoter.History(ctx, kind, id)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(entries) == 0 {
		fmt.Fprintf(out, "No history for %s %d\n", kind, id)
		return nil
	}
	for _, h := range entries {
		fmt.Fprintf(out, "%s  %s -> %s  by %s", h.CreatedAt.Format(time.RFC3339), h.PreviousState, h.NewState, h.ActorID)
		if h.Reason != "" {
			fmt.Fprintf(out, ": %s", h.Reason)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	text := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("a search query is required")
	}

	q := search.Query{Text: text, Limit: c.Int("limit")}
	for _, s := range c.StringSlice("category") {
		cat, err := core.ParseCategory(s)
		if err != nil {
			return err
		}
		q.Categories = append(q.Categories, cat)
	}
	for _, s := range c.StringSlice("state") {
		state, err := core.ParseSemanticState(s)
		if err != nil {
			return err
		}
		q.States = append(q.States, state)
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	if !c.Bool("all-owners") {
		q.Owner = e.cfg.Owner.ID
	}

	searcher, err := e.db.NewSearcher()
	if err != nil {
		return err
	}
	results, err := searcher.Search(ctx, q)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Found %d entities\n", len(results))
	for _, ent := range results {
		fmt.Fprintf(out, "%d: [%s] %s (%s, %.2f) %s\n", ent.Id, ent.Category, ent.Name, ent.State, ent.Confidence, ent.Description)
	}
	return nil
}

func chunksCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	cfg := configFrom(c)
	e := &env{cfg: cfg}
	tables, err := e.vocabulary()
	if err != nil {
		return err
	}
	parser, err := conversation.NewParser(conversation.WithVocabulary(tables))
	if err != nil {
		return err
	}

	out := c.App.Writer
	count := 0
	for chunk, err := range parser.Chunks(path) {
		if err != nil {
			return cli.Exit(fmt.Sprintf("chunking failed: %v", err), 1)
		}
		count++
		fmt.Fprintf(out, "chunk %d: ~%d tokens, %d chars\n", chunk.Index, chunk.TokenEstimate, len([]rune(chunk.Content)))
		if c.Bool("content") {
			fmt.Fprintf(out, "%s\n\n", chunk.Content)
		}
	}
	fmt.Fprintf(out, "%d chunks\n", count)
	return nil
}

func sourcesCommand(c *cli.Context) error {
	ctx := context.Background()

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	runs, err := e.db.RunRepository().ListRuns(ctx)
	if err != nil {
		return err
	}

	out := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(out, "No sources ingested")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(out, "%s  run=%s  entities=%d  relationships=%d  at=%s\n",
			run.SourceID, run.RunID, run.EntitiesCreated, run.RelationshipsCreated,
			run.CompletedAt.Format(time.RFC3339))
	}
	return nil
}

func forgetCommand(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	sourceID, err := ingestion.SourceID(c.Args().First())
	if err != nil {
		return err
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	removed, err := e.db.EntityRepository().DeleteEntitiesBySource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("failed to remove entities: %w", err)
	}
	if err := e.db.RunRepository().DeleteRun(ctx, sourceID); err != nil {
		return fmt.Errorf("failed to remove run record: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Removed %d entities of %s\n", removed, sourceID)
	return nil
}

func printResult(out io.Writer, res *ingestion.Result) {
	meta := res.Metadata
	fmt.Fprintf(out, "Source: %s\n", res.SourceID)
	fmt.Fprintf(out, "Format: %s, date: %s", meta.Format, meta.Date.Format(time.DateOnly))
	if meta.DateFallback {
		fmt.Fprint(out, " (fallback)")
	}
	fmt.Fprintf(out, ", topic: %s\n", meta.Topic)
	if len(meta.Participants) > 0 {
		fmt.Fprintf(out, "Participants: %s\n", strings.Join(meta.Participants, ", "))
	}

	if res.DryRun && res.Preview != nil {
		for _, ent := range res.Preview.Entities {
			fmt.Fprintf(out, "  + [%s] %s (%.2f)\n", ent.Category, ent.Name, ent.Confidence)
		}
		for _, skip := range res.Preview.Skipped {
			fmt.Fprintf(out, "  - [%s] %s: %s\n", skip.Category, skip.Name, skip.Reason)
		}
		for _, rel := range res.Preview.Relationships {
			fmt.Fprintf(out, "  ~ %s -[%s]-> %s (weight %d, %.2f)\n", rel.From, rel.Type, rel.To, rel.Weight, rel.Confidence)
		}
	}

	printWarnings(out, res.Warnings)
	fmt.Fprintln(out, res.Message)
	if res.SyncAttempted {
		status := "ok"
		if !res.Synced {
			status = "failed"
		}
		fmt.Fprintf(out, "Lake sync: %s\n", status)
	}
}

func printWarnings(out io.Writer, warnings []string) {
	for _, w := range warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
}
