package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/panjf2000/ants/v2"
)

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	Path     string
	Result   *Result
	Err      error
	Archived string // destination path when the file was archived
}

// BatchSummary aggregates a batch run.
type BatchSummary struct {
	Total                int
	Succeeded            int
	Failed               int
	AlreadyIngested      int
	EntitiesCreated      int
	RelationshipsCreated int
	Synced               int
	SyncFailed           int
	Files                []FileResult
}

// Batch ingests many files with one pipeline. Preparation runs on a worker
// pool; commits happen one at a time in input order.
type Batch struct {
	pipeline    *Pipeline
	concurrency int
	archiveDir  string
	progress    io.Writer
	logger      *slog.Logger

	// called with the file index after prepare and after commit
	onPrepared  func(int)
	onCommitted func(int)
}

// BatchOption configures a Batch.
type BatchOption func(*Batch) error

// WithConcurrency sets how many files are prepared at once. Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *Batch) error {
		if n < 1 {
			n = 1
		}
		b.concurrency = n
		return nil
	}
}

// WithArchiveDir moves each successfully ingested file into dir after a
// live run.
func WithArchiveDir(dir string) BatchOption {
	return func(b *Batch) error {
		b.archiveDir = dir
		return nil
	}
}

// WithProgress reports progress to w.
func WithProgress(w io.Writer) BatchOption {
	return func(b *Batch) error {
		b.progress = w
		return nil
	}
}

// WithBatchLogger sets a custom logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBatch creates a batch driver for pipeline.
func NewBatch(pipeline *Pipeline, opts ...BatchOption) (*Batch, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	b := &Batch{
		pipeline:    pipeline,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "batch")
	return b, nil
}

type preparedFile struct {
	prep *prepared
	err  error
}

// Run ingests paths using req as the template for every file. Per-file
// failures are recorded in the summary and do not stop the batch; the
// returned error is non-nil only when the batch itself could not run.
func (b *Batch) Run(ctx context.Context, paths []string, req Request) (*BatchSummary, error) {
	summary := &BatchSummary{Total: len(paths)}
	if len(paths) == 0 {
		return summary, nil
	}

	pool, err := ants.NewPool(b.concurrency)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var tracker *ProgressTracker
	if b.progress != nil {
		tracker = NewProgressTracker(b.progress, len(paths), 1)
		tracker.Start()
		defer tracker.Finish()
	}

	futures := make([]chan preparedFile, len(paths))
	for i := range futures {
		futures[i] = make(chan preparedFile, 1)
	}
	// At most concurrency files are prepared but not yet committed.
	window := make(chan struct{}, b.concurrency)
	go func() {
		for i, path := range paths {
			window <- struct{}{}
			fileReq := req
			fileReq.FilePath = path
			future := futures[i]
			err := pool.Submit(func() {
				defer func() {
					if r := recover(); r != nil {
						future <- preparedFile{err: fmt.Errorf("prepare %s: panic: %v", fileReq.FilePath, r)}
					}
				}()
				prep, err := b.pipeline.prepare(ctx, fileReq)
				if b.onPrepared != nil {
					b.onPrepared(i)
				}
				future <- preparedFile{prep: prep, err: err}
			})
			if err != nil {
				future <- preparedFile{err: fmt.Errorf("schedule %s: %w", path, err)}
			}
		}
	}()

	for i, path := range paths {
		fileReq := req
		fileReq.FilePath = path

		pf := <-futures[i]
		res, err := b.pipeline.complete(ctx, fileReq, pf.prep, pf.err)
		if b.onCommitted != nil {
			b.onCommitted(i)
		}
		<-window
		fr := FileResult{Path: path, Result: res, Err: err}

		switch {
		case errors.Is(err, ErrAlreadyIngested):
			summary.AlreadyIngested++
		case err != nil:
			summary.Failed++
		default:
			summary.Succeeded++
			summary.EntitiesCreated += res.EntitiesCreated
			summary.RelationshipsCreated += res.RelationshipsCreated
			if res.SyncAttempted {
				if res.Synced {
					summary.Synced++
				} else {
					summary.SyncFailed++
				}
			}
			if b.archiveDir != "" && !req.DryRun {
				dest, archErr := archive(path, b.archiveDir)
				if archErr != nil {
					b.logger.Warn("failed to archive file", "path", path, "err", archErr)
					res.Warnings = append(res.Warnings, fmt.Sprintf("archive failed: %v", archErr))
				} else {
					fr.Archived = dest
				}
			}
		}

		summary.Files = append(summary.Files, fr)
		if tracker != nil {
			tracker.Record(err == nil || errors.Is(err, ErrAlreadyIngested))
		}
	}

	b.logger.Info("batch complete", "total", summary.Total, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "already_ingested", summary.AlreadyIngested,
		"entities", summary.EntitiesCreated, "relationships", summary.RelationshipsCreated)
	return summary, nil
}

func archive(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// CollectFiles returns the markdown files directly inside dir, sorted by name.
func CollectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".md") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
