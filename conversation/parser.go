package conversation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/kgingest/vocab"
)

// Format identifies the export tool that produced a conversation file.
type Format string

const (
	FormatClaudeGUI     Format = "claude-gui"
	FormatGeminiCLI     Format = "gemini-cli"
	FormatAgentSpecific Format = "agent-specific"
	FormatUnknown       Format = "unknown"
)

const (
	minYear = 2020
	maxYear = 2100
)

type formatRule struct {
	format  Format
	pattern *regexp.Regexp
	agent   string
}

// Header patterns, tried in order. The first match wins.
var formatRules = []formatRule{
	{FormatClaudeGUI, regexp.MustCompile(`(?mi)^#*\s*Claude\s+(?:conversation|chat)\b.*\d{2}/\d{2}/\d{4}`), "Claude"},
	{FormatGeminiCLI, regexp.MustCompile(`(?mi)^#*\s*Gemini\s+(?:CLI|session|chat)\b.*\d{2}/\d{2}/\d{4}`), "Gemini"},
	{FormatAgentSpecific, regexp.MustCompile(`(?m)^Agent:[ \t]+(\S[^\n]*?)[ \t]*$`), ""},
}

var (
	localeDatePattern = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	isoDatePattern    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	topicPattern      = regexp.MustCompile(`(?mi)^(?:Topic|Subject):[ \t]*(\S[^\n]*?)[ \t]*$`)
	titlePattern      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(\S[^\n]*?)[ \t]*$`)
)

// Metadata describes a parsed conversation.
type Metadata struct {
	FilePath     string
	Format       Format
	Date         time.Time
	DateFallback bool // true when no header date was found and Date is the parse time
	Agent        string
	Participants []string
	Topic        string
	FileSize     int64
}

// Chunk is a bounded slice of conversation text.
type Chunk struct {
	Index         int
	Content       string
	TokenEstimate int
}

// Conversation is the parsed form of one file.
type Conversation struct {
	Metadata Metadata
	Text     string
	Chunks   []Chunk
}

// Parser turns validated conversation files into metadata and chunks.
type Parser struct {
	vocab           *vocab.Tables
	logger          *slog.Logger
	now             func() time.Time
	streamThreshold int64
	windowSize      int
}

// Option configures a Parser.
type Option func(*Parser) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) error {
		p.logger = logger
		return nil
	}
}

// WithVocabulary sets the tables used to detect participants.
func WithVocabulary(tables *vocab.Tables) Option {
	return func(p *Parser) error {
		if tables == nil {
			return fmt.Errorf("vocabulary is nil")
		}
		p.vocab = tables
		return nil
	}
}

// WithClock sets the time source used when a file has no usable date.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) error {
		p.now = now
		return nil
	}
}

// WithStreamThreshold sets the file size at which Chunks switches from
// eager parsing to windowed streaming.
func WithStreamThreshold(n int64) Option {
	return func(p *Parser) error {
		if n <= 0 {
			return fmt.Errorf("stream threshold must be positive, got %d", n)
		}
		p.streamThreshold = n
		return nil
	}
}

// WithWindowSize sets the read window used when streaming.
func WithWindowSize(n int) Option {
	return func(p *Parser) error {
		if n <= 0 {
			return fmt.Errorf("window size must be positive, got %d", n)
		}
		p.windowSize = n
		return nil
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) (*Parser, error) {
	p := &Parser{
		vocab:           vocab.Default(),
		logger:          slog.Default(),
		now:             time.Now,
		streamThreshold: DefaultStreamThreshold,
		windowSize:      DefaultWindowSize,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "parser")
	return p, nil
}

// ParseFile reads and parses path. It does not validate the file first.
func (p *Parser) ParseFile(path string) (*Conversation, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Parse(path, content)
}

// Parse extracts metadata and chunks from file content.
func (p *Parser) Parse(path string, content []byte) (*Conversation, error) {
	text := normalizeNewlines(string(content))

	format, agent := detectFormat(text)
	meta := Metadata{
		FilePath: path,
		Format:   format,
		Agent:    agent,
		FileSize: int64(len(content)),
	}

	date, found, err := p.extractDate(path, text, format)
	if err != nil {
		return nil, err
	}
	if !found {
		date = p.now().UTC()
		meta.DateFallback = true
		p.logger.Warn("no conversation date found, using current time", "path", path, "format", format)
	}
	meta.Date = date
	meta.Participants = p.participants(text, format, agent)
	meta.Topic = extractTopic(path, text)

	return &Conversation{
		Metadata: meta,
		Text:     text,
		Chunks:   ChunkText(text),
	}, nil
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func detectFormat(text string) (Format, string) {
	for _, rule := range formatRules {
		m := rule.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		agent := rule.agent
		if agent == "" && len(m) > 1 {
			agent = m[1]
		}
		return rule.format, agent
	}
	return FormatUnknown, ""
}

// extractDate finds the conversation date. Vendor formats carry DD/MM/YYYY
// dates and agent-specific files carry ISO dates; an out-of-range date in
// either is a ParseError. Unknown files try both layouts and treat an
// out-of-range match as no date, since free text holds US dates and
// reference numbers.
func (p *Parser) extractDate(path, text string, format Format) (time.Time, bool, error) {
	switch format {
	case FormatClaudeGUI, FormatGeminiCLI:
		return parseDate(path, text, localeDatePattern, 1, 2, 3)
	case FormatAgentSpecific:
		return parseDate(path, text, isoDatePattern, 3, 2, 1)
	default:
		if date, found, err := parseDate(path, text, localeDatePattern, 1, 2, 3); found && err == nil {
			return date, true, nil
		}
		if date, found, err := parseDate(path, text, isoDatePattern, 3, 2, 1); found && err == nil {
			return date, true, nil
		}
		return time.Time{}, false, nil
	}
}

func parseDate(path, text string, re *regexp.Regexp, dayIdx, monthIdx, yearIdx int) (time.Time, bool, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false, nil
	}
	day, _ := strconv.Atoi(m[dayIdx])
	month, _ := strconv.Atoi(m[monthIdx])
	year, _ := strconv.Atoi(m[yearIdx])

	var field string
	switch {
	case day < 1 || day > 31:
		field = "day"
	case month < 1 || month > 12:
		field = "month"
	case year < minYear || year > maxYear:
		field = "year"
	}
	if field != "" {
		return time.Time{}, false, &ParseError{Path: path, Field: field, Value: m[0], Err: ErrDateOutOfRange}
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true, nil
}

// participants returns detected names in first-seen order: the format's
// primary agent and User, then every known participant mentioned.
func (p *Parser) participants(text string, format Format, agent string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	switch format {
	case FormatClaudeGUI, FormatGeminiCLI:
		add(agent)
		add("User")
	case FormatAgentSpecific:
		add(agent)
	}
	for _, participant := range p.vocab.Participants {
		if participant.Pattern.MatchString(text) {
			add(participant.Name)
		}
	}
	return out
}

func extractTopic(path, text string) string {
	if m := topicPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := titlePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
