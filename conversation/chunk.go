package conversation

import (
	"errors"
	"io"
	"iter"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxChunkTokens bounds the estimated size of a chunk built from
	// several sections.
	MaxChunkTokens = 4000
	// SectionFlushTokens closes the current chunk after any single
	// section larger than this.
	SectionFlushTokens = 3000

	// DefaultStreamThreshold is the file size at which Chunks streams.
	DefaultStreamThreshold = 1 << 20
	// DefaultWindowSize is the streaming read size.
	DefaultWindowSize = 64 << 10
	// MinStreamFragment is the shortest paragraph emitted while streaming.
	MinStreamFragment = 100
)

var paragraphBreak = regexp.MustCompile(`\n(?:[ \t]*\n)+`)

// EstimateTokens approximates the token count of s as one token per four
// characters, rounded up.
func EstimateTokens(s string) int {
	return estimate(utf8.RuneCountInString(s))
}

func estimate(chars int) int {
	return (chars + 3) / 4
}

// ChunkText splits text into sections at blank lines and before level 2
// and 3 headings, then packs sections greedily into chunks of at most
// MaxChunkTokens. A section that alone exceeds the limit becomes its own
// chunk.
func ChunkText(text string) []Chunk {
	var (
		chunks   []Chunk
		cur      strings.Builder
		curChars int
	)
	flush := func() {
		if curChars == 0 {
			return
		}
		content := cur.String()
		chunks = append(chunks, Chunk{
			Index:         len(chunks),
			Content:       content,
			TokenEstimate: estimate(curChars),
		})
		cur.Reset()
		curChars = 0
	}

	for _, section := range splitSections(text) {
		chars := utf8.RuneCountInString(section)
		if curChars > 0 && estimate(curChars+2+chars) > MaxChunkTokens {
			flush()
		}
		if curChars > 0 {
			cur.WriteString("\n\n")
			curChars += 2
		}
		cur.WriteString(section)
		curChars += chars
		if estimate(chars) > SectionFlushTokens {
			flush()
		}
	}
	flush()
	return chunks
}

func splitSections(text string) []string {
	var (
		sections []string
		lines    []string
	)
	end := func() {
		if s := strings.TrimSpace(strings.Join(lines, "\n")); s != "" {
			sections = append(sections, s)
		}
		lines = lines[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			end()
		case isSectionHeading(line):
			end()
			lines = append(lines, line)
		default:
			lines = append(lines, line)
		}
	}
	end()
	return sections
}

func isSectionHeading(line string) bool {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	return (n == 2 || n == 3) && n < len(line) && (line[n] == ' ' || line[n] == '\t')
}

// Chunks yields the chunks of the file at path. Files below the stream
// threshold are parsed eagerly and yield the same chunks as ParseFile.
// Larger files are read in fixed windows and yield one chunk per
// paragraph, skipping fragments shorter than MinStreamFragment characters.
// The file is closed when iteration ends, including on early break.
func (p *Parser) Chunks(path string) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		info, err := os.Stat(path)
		if err != nil {
			yield(Chunk{}, err)
			return
		}

		if info.Size() < p.streamThreshold {
			conv, err := p.ParseFile(path)
			if err != nil {
				yield(Chunk{}, err)
				return
			}
			for _, c := range conv.Chunks {
				if !yield(c, nil) {
					return
				}
			}
			return
		}

		p.logger.Debug("streaming chunks", "path", path, "size", info.Size(), "window", p.windowSize)
		p.stream(path, yield)
	}
}

func (p *Parser) stream(path string, yield func(Chunk, error) bool) {
	f, err := os.Open(path)
	if err != nil {
		yield(Chunk{}, err)
		return
	}
	defer f.Close()

	index := 0
	emit := func(fragment string) bool {
		fragment = strings.TrimSpace(normalizeNewlines(fragment))
		chars := utf8.RuneCountInString(fragment)
		if chars < MinStreamFragment {
			return true
		}
		c := Chunk{Index: index, Content: fragment, TokenEstimate: estimate(chars)}
		index++
		return yield(c, nil)
	}

	buf := make([]byte, p.windowSize)
	var carry string
	for {
		n, err := f.Read(buf)
		if n > 0 {
			carry = strings.ReplaceAll(carry+string(buf[:n]), "\r\n", "\n")
			parts := paragraphBreak.Split(carry, -1)
			carry = parts[len(parts)-1]
			for _, part := range parts[:len(parts)-1] {
				if !emit(part) {
					return
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			yield(Chunk{}, err)
			return
		}
	}
	emit(carry)
}
