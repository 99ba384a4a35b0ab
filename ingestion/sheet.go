package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/kgingest/core"
)

// Sheet columns. Matching is case-insensitive.
const (
	ColumnDate     = "date"
	ColumnAgent    = "agent"
	ColumnTopic    = "topic"
	ColumnPrompt   = "prompt"
	ColumnResponse = "response"
	ColumnPriority = "priority"
	ColumnProject  = "project"
	ColumnTags     = "tags"
	ColumnIngested = "ingested"
)

var requiredColumns = []string{ColumnDate, ColumnAgent, ColumnTopic, ColumnPrompt, ColumnResponse}

var sheetNameJunk = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SheetRow is one exchange exported from a spreadsheet. Number is the
// spreadsheet row, so the header is row 1.
type SheetRow struct {
	Number   int
	Date     string
	Agent    string
	Topic    string
	Prompt   string
	Response string
	Priority string
	Project  string
	Tags     string
}

// SkippedRow is a row left out of the import.
type SkippedRow struct {
	Number int
	Reason string
}

// Exchange is one prompt and its response.
type Exchange struct {
	Prompt   string
	Response string
}

// SheetConversation groups the rows that share a date, agent and topic.
type SheetConversation struct {
	Date      string
	Agent     string
	Topic     string
	Priority  string
	Project   string
	Tags      string
	Exchanges []Exchange
	Rows      []int
}

// Sheet is a CSV export of conversations, one exchange per row. It keeps the
// raw records so rows can be marked as ingested and written back.
type Sheet struct {
	header  []string
	records [][]string
	columns map[string]int

	Rows    []SheetRow
	Skipped []SkippedRow
}

// ReadSheetFile reads a CSV export from path.
func ReadSheetFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSheet(f)
}

// ReadSheet parses a CSV export. Rows already marked as ingested and rows
// missing a required field are recorded in Skipped.
func ReadSheet(r io.Reader) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSheet, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrInvalidSheet)
	}

	s := &Sheet{
		header:  all[0],
		records: all[1:],
		columns: make(map[string]int),
	}
	for i, name := range s.header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := s.columns[name]; !dup {
			s.columns[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := s.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrInvalidSheet, strings.Join(missing, ", "))
	}

	for i, record := range s.records {
		number := i + 2
		if strings.EqualFold(s.value(record, ColumnIngested), "yes") {
			s.Skipped = append(s.Skipped, SkippedRow{Number: number, Reason: "already ingested"})
			continue
		}
		row := SheetRow{
			Number:   number,
			Date:     s.value(record, ColumnDate),
			Agent:    s.value(record, ColumnAgent),
			Topic:    s.value(record, ColumnTopic),
			Prompt:   s.value(record, ColumnPrompt),
			Response: s.value(record, ColumnResponse),
			Priority: s.value(record, ColumnPriority),
			Project:  s.value(record, ColumnProject),
			Tags:     s.value(record, ColumnTags),
		}
		if row.Date == "" || row.Agent == "" || row.Topic == "" || row.Prompt == "" || row.Response == "" {
			s.Skipped = append(s.Skipped, SkippedRow{Number: number, Reason: "missing required fields"})
			continue
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

func (s *Sheet) value(record []string, column string) string {
	i, ok := s.columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Conversations groups rows by date, agent and topic in first-seen order.
func (s *Sheet) Conversations() []SheetConversation {
	var convs []SheetConversation
	index := make(map[string]int)
	for _, row := range s.Rows {
		key := row.Date + "\x00" + row.Agent + "\x00" + row.Topic
		i, ok := index[key]
		if !ok {
			i = len(convs)
			index[key] = i
			convs = append(convs, SheetConversation{
				Date:     row.Date,
				Agent:    row.Agent,
				Topic:    row.Topic,
				Priority: row.Priority,
				Project:  row.Project,
				Tags:     row.Tags,
			})
		}
		convs[i].Exchanges = append(convs[i].Exchanges, Exchange{Prompt: row.Prompt, Response: row.Response})
		convs[i].Rows = append(convs[i].Rows, row.Number)
	}
	return convs
}

// MarkIngested sets the ingested column of the given rows to Yes, adding the
// column when the sheet has none.
func (s *Sheet) MarkIngested(rows ...int) {
	col, ok := s.columns[ColumnIngested]
	if !ok {
		col = len(s.header)
		s.header = append(s.header, "Ingested")
		s.columns[ColumnIngested] = col
	}
	for _, number := range rows {
		i := number - 2
		if i < 0 || i >= len(s.records) {
			continue
		}
		for len(s.records[i]) <= col {
			s.records[i] = append(s.records[i], "")
		}
		s.records[i][col] = "Yes"
	}
}

// Write writes the sheet, including any ingested marks, as CSV.
func (s *Sheet) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.header); err != nil {
		return err
	}
	if err := cw.WriteAll(s.records); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile replaces path with the sheet. The new content is written to a
// temporary file in the same directory and renamed over path.
func (s *Sheet) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sheet-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := s.Write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Key identifies the conversation across imports.
func (c SheetConversation) Key() string {
	return c.Agent + "_" + c.Date + "_" + c.Topic
}

// FileName is stable for a given key, so re-importing a conversation reuses
// its source.
func (c SheetConversation) FileName() string {
	name := strings.Trim(sheetNameJunk.ReplaceAllString(c.Key(), "_"), "_")
	if len(name) > 60 {
		name = name[:60]
	}
	return fmt.Sprintf("%s_%s.md", name, core.ContentHash([]byte(c.Key()))[:8])
}

// sheetDate rewrites common spreadsheet date layouts as ISO dates so the
// parser picks them up. Anything else is kept as is.
func sheetDate(s string) string {
	for _, layout := range []string{time.DateOnly, "02/01/2006", "2/1/2006", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly)
		}
	}
	return s
}

// Markdown renders the conversation in the agent-specific format.
func (c SheetConversation) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation with %s\n", c.Agent)
	fmt.Fprintf(&b, "Agent: %s\n", c.Agent)
	fmt.Fprintf(&b, "Date: %s\n", sheetDate(c.Date))
	fmt.Fprintf(&b, "Topic: %s\n", c.Topic)
	for _, field := range []struct{ label, value string }{
		{"Priority", c.Priority},
		{"Project", c.Project},
		{"Tags", c.Tags},
	} {
		if field.value != "" {
			fmt.Fprintf(&b, "%s: %s\n", field.label, field.value)
		}
	}
	rows := make([]string, len(c.Rows))
	for i, n := range c.Rows {
		rows[i] = strconv.Itoa(n)
	}
	fmt.Fprintf(&b, "Source: sheet rows %s\n", strings.Join(rows, ", "))

	for _, ex := range c.Exchanges {
		fmt.Fprintf(&b, "\n---\n\nUser: %s\n\n%s: %s\n", ex.Prompt, c.Agent, ex.Response)
	}
	return b.String()
}

// SheetResult is the outcome of one conversation of a sheet.
type SheetResult struct {
	Key    string
	Rows   []int
	Path   string
	Result *Result
	Err    error
}

// SheetSummary aggregates a sheet import.
type SheetSummary struct {
	Rows                 int
	Skipped              int
	Conversations        int
	Succeeded            int
	Failed               int
	AlreadyIngested      int
	EntitiesCreated      int
	RelationshipsCreated int
	Synced               int
	SyncFailed           int
	Results              []SheetResult
	Ingested             []int // rows marked as ingested
}

// SheetImport feeds the conversations of a sheet through a pipeline. Each
// conversation is rendered into workDir and ingested from there.
type SheetImport struct {
	pipeline *Pipeline
	workDir  string
	logger   *slog.Logger
}

// SheetImportOption configures a SheetImport.
type SheetImportOption func(*SheetImport) error

// WithSheetLogger sets a custom logger.
func WithSheetLogger(logger *slog.Logger) SheetImportOption {
	return func(si *SheetImport) error {
		if logger == nil {
			logger = slog.Default()
		}
		si.logger = logger
		return nil
	}
}

// NewSheetImport creates a sheet importer writing conversations to workDir.
func NewSheetImport(pipeline *Pipeline, workDir string, opts ...SheetImportOption) (*SheetImport, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	if workDir == "" {
		return nil, fmt.Errorf("work directory required")
	}
	si := &SheetImport{
		pipeline: pipeline,
		workDir:  workDir,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(si); err != nil {
			return nil, err
		}
	}
	si.logger = si.logger.With("component", "sheet")
	return si, nil
}

// Run ingests every conversation of sheet using req as the template. After
// a live run the rows of ingested and already-ingested conversations are
// marked on the sheet; the caller decides whether to write it back.
func (si *SheetImport) Run(ctx context.Context, sheet *Sheet, req Request) (*SheetSummary, error) {
	convs := sheet.Conversations()
	summary := &SheetSummary{
		Rows:          len(sheet.Rows),
		Skipped:       len(sheet.Skipped),
		Conversations: len(convs),
	}
	if len(convs) == 0 {
		return summary, nil
	}
	if err := os.MkdirAll(si.workDir, 0755); err != nil {
		return nil, err
	}

	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		sr := SheetResult{Key: conv.Key(), Rows: conv.Rows, Path: filepath.Join(si.workDir, conv.FileName())}
		if err := os.WriteFile(sr.Path, []byte(conv.Markdown()), 0644); err != nil {
			sr.Err = stageError(StageValidation, sr.Path, err)
			summary.Failed++
			summary.Results = append(summary.Results, sr)
			continue
		}

		fileReq := req
		fileReq.FilePath = sr.Path
		sr.Result, sr.Err = si.pipeline.Ingest(ctx, fileReq)

		switch {
		case errors.Is(sr.Err, ErrAlreadyIngested):
			summary.AlreadyIngested++
			summary.Ingested = append(summary.Ingested, conv.Rows...)
		case sr.Err != nil:
			summary.Failed++
			si.logger.Warn("sheet conversation failed", "key", sr.Key, "rows", conv.Rows, "err", sr.Err)
		default:
			summary.Succeeded++
			summary.EntitiesCreated += sr.Result.EntitiesCreated
			summary.RelationshipsCreated += sr.Result.RelationshipsCreated
			if sr.Result.SyncAttempted {
				if sr.Result.Synced {
					summary.Synced++
				} else {
					summary.SyncFailed++
				}
			}
			if !req.DryRun {
				summary.Ingested = append(summary.Ingested, conv.Rows...)
			}
		}
		summary.Results = append(summary.Results, sr)
	}

	if !req.DryRun {
		slices.Sort(summary.Ingested)
		sheet.MarkIngested(summary.Ingested...)
	}
	si.logger.Info("sheet import complete", "conversations", summary.Conversations,
		"succeeded", summary.Succeeded, "failed", summary.Failed,
		"already_ingested", summary.AlreadyIngested, "rows_marked", len(summary.Ingested))
	return summary, nil
}
