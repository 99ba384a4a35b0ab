package conversation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultDumpTopic is used when a dumped conversation names no topic and has
// no user turn to borrow one from.
const DefaultDumpTopic = "General Discussion"

const maxDumpTopic = 50

var (
	dumpSeparator = regexp.MustCompile(`^(?:={3,}|-{3,}|\*{3,})`)
	dumpDate      = regexp.MustCompile(`(?i)(?:conversation started|date|timestamp):\s*(\d{4}-\d{2}-\d{2})`)
	dumpTopic     = regexp.MustCompile(`(?i)\b(?:topic|subject|re):\s*(\S.*?)\s*$`)
	firstUserTurn = regexp.MustCompile(`(?mi)^user:\s*(\S.*?)\s*$`)
	fileNameJunk  = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

// DumpEntry is one conversation cut out of a multi-conversation dump.
type DumpEntry struct {
	Agent        string
	Date         time.Time
	DateFallback bool
	Topic        string
	Participants []string
	Source       string // base name of the dump
	StartLine    int    // 1-based, inclusive
	EndLine      int
	Content      string
}

// SplitFile reads a dump and splits it. The agent is the part of the file
// name before the first underscore, so Claude_2024-11.md yields Claude.
func (p *Parser) SplitFile(path string) ([]DumpEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	agent, _, _ := strings.Cut(base, "_")
	return p.Split(agent, filepath.Base(path), content), nil
}

// Split cuts a dump into conversations at separator lines (===, --- or ***).
// Text before the first separator is the dump's preamble and is dropped, as
// are sections with no content.
func (p *Parser) Split(agent, source string, content []byte) []DumpEntry {
	lines := strings.Split(normalizeNewlines(string(content)), "\n")

	var (
		entries []DumpEntry
		section []string
		start   int
		open    bool
	)
	flush := func(end int) {
		body := strings.TrimSpace(strings.Join(section, "\n"))
		if !open || body == "" {
			return
		}
		entries = append(entries, p.dumpEntry(agent, source, body, start, end))
	}

	for i, line := range lines {
		if dumpSeparator.MatchString(strings.TrimSpace(line)) {
			flush(i)
			section = section[:0]
			start = i + 2
			open = true
			continue
		}
		if open {
			section = append(section, line)
		}
	}
	flush(len(lines))

	p.logger.Debug("split dump", "source", source, "conversations", len(entries))
	return entries
}

func (p *Parser) dumpEntry(agent, source, body string, start, end int) DumpEntry {
	e := DumpEntry{
		Agent:     agent,
		Source:    source,
		StartLine: start,
		EndLine:   end,
		Content:   body,
	}

	if date, ok := dumpEntryDate(body); ok {
		e.Date = date
	} else {
		e.Date = p.now().UTC().Truncate(24 * time.Hour)
		e.DateFallback = true
	}

	e.Topic = dumpEntryTopic(body)

	e.Participants = []string{agent}
	for _, name := range p.participants(body, FormatUnknown, "") {
		if name != agent {
			e.Participants = append(e.Participants, name)
		}
	}
	return e
}

// dumpEntryDate prefers a labelled date line and falls back to the first
// valid ISO date anywhere in the section.
func dumpEntryDate(body string) (time.Time, bool) {
	if m := dumpDate.FindStringSubmatch(body); m != nil {
		if t, err := time.Parse(time.DateOnly, m[1]); err == nil {
			return t, true
		}
	}
	for _, m := range isoDatePattern.FindAllString(body, -1) {
		if t, err := time.Parse(time.DateOnly, m); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// dumpEntryTopic uses the first topic line, else the start of the first
// user turn.
func dumpEntryTopic(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if m := dumpTopic.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	if m := firstUserTurn.FindStringSubmatch(body); m != nil {
		return truncateTopic(m[1])
	}
	return DefaultDumpTopic
}

func truncateTopic(s string) string {
	r := []rune(s)
	if len(r) <= maxDumpTopic {
		return s
	}
	return string(r[:maxDumpTopic-3]) + "..."
}

// FileName names the n-th (1-based) entry of its dump as
// Agent_YYYYMMDD_Topic_n.md.
func (e DumpEntry) FileName(n int) string {
	topic := fileNameJunk.ReplaceAllString(e.Topic, "")
	if len(topic) > 30 {
		topic = topic[:30]
	}
	return fmt.Sprintf("%s_%s_%s_%d.md", e.Agent, e.Date.Format("20060102"), topic, n)
}

// Markdown renders the entry with a header the parser reads as the
// agent-specific format.
func (e DumpEntry) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation with %s\n", e.Agent)
	fmt.Fprintf(&b, "Agent: %s\n", e.Agent)
	fmt.Fprintf(&b, "Date: %s\n", e.Date.Format(time.DateOnly))
	fmt.Fprintf(&b, "Topic: %s\n", e.Topic)
	fmt.Fprintf(&b, "Participants: %s\n", strings.Join(e.Participants, ", "))
	fmt.Fprintf(&b, "Source: %s (lines %d-%d)\n\n---\n\n", e.Source, e.StartLine, e.EndLine)
	b.WriteString(e.Content)
	b.WriteString("\n")
	return b.String()
}
