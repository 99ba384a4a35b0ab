// Package extract finds known entities in conversation text using the
// compiled vocabulary tables.
package extract

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/vocab"
)

// DefaultExcerptRadius is the number of characters kept on each side of a
// match start in provenance excerpts.
const DefaultExcerptRadius = 80

// Extractor runs every entity table over a chunk of text.
type Extractor struct {
	vocab  *vocab.Tables
	radius int
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor) error

// WithVocabulary sets the tables to extract with.
func WithVocabulary(tables *vocab.Tables) Option {
	return func(e *Extractor) error {
		if tables == nil {
			return fmt.Errorf("vocabulary is nil")
		}
		e.vocab = tables
		return nil
	}
}

// WithExcerptRadius overrides DefaultExcerptRadius.
func WithExcerptRadius(n int) Option {
	return func(e *Extractor) error {
		if n < 0 {
			return fmt.Errorf("excerpt radius must not be negative, got %d", n)
		}
		e.radius = n
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) error {
		e.logger = logger
		return nil
	}
}

// NewExtractor creates an Extractor backed by the default vocabulary
// unless WithVocabulary is given.
func NewExtractor(opts ...Option) (*Extractor, error) {
	e := &Extractor{
		vocab:  vocab.Default(),
		radius: DefaultExcerptRadius,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "extractor")
	return e, nil
}

// Extract returns the entities found in chunk, one per (category, name),
// in first-seen order. When a name matches more than once the occurrence
// with the higher confidence wins.
func (e *Extractor) Extract(chunk string) []core.ExtractedEntity {
	var set entitySet
	e.extractInto(&set, chunk)
	return set.items
}

// ExtractAll extracts from each chunk and merges the results with the
// same identity and confidence rules as Extract.
func (e *Extractor) ExtractAll(chunks []string) []core.ExtractedEntity {
	var set entitySet
	for _, chunk := range chunks {
		e.extractInto(&set, chunk)
	}
	e.logger.Debug("extracted entities", "chunks", len(chunks), "entities", len(set.items))
	return set.items
}

func (e *Extractor) extractInto(set *entitySet, chunk string) {
	if strings.TrimSpace(chunk) == "" {
		return
	}
	var runes []rune
	for _, table := range e.vocab.Entities {
		for _, term := range table.Terms {
			for _, loc := range term.Pattern.FindAllStringIndex(chunk, -1) {
				name := term.Name
				if name == "" {
					name = strings.Join(strings.Fields(chunk[loc[0]:loc[1]]), " ")
				}
				if name == "" {
					continue
				}
				if runes == nil {
					runes = []rune(chunk)
				}
				start := utf8.RuneCountInString(chunk[:loc[0]])
				set.add(core.ExtractedEntity{
					Category:    table.Category,
					Name:        name,
					Description: describe(table.Description, name),
					Confidence:  term.Confidence,
					Excerpt:     excerpt(runes, start, e.radius),
				})
			}
		}
	}
}

func describe(label, name string) string {
	if label == "" {
		return name
	}
	return label + ": " + name
}

// excerpt returns up to radius characters on either side of start with
// whitespace collapsed, marking truncated sides with an ellipsis.
func excerpt(runes []rune, start, radius int) string {
	lo := max(0, start-radius)
	hi := min(len(runes), start+radius)
	text := strings.Join(strings.Fields(string(runes[lo:hi])), " ")
	if lo > 0 {
		text = "..." + text
	}
	if hi < len(runes) {
		text += "..."
	}
	return text
}

type entitySet struct {
	items []core.ExtractedEntity
	index map[string]int
}

func (s *entitySet) add(ent core.ExtractedEntity) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := ent.Key()
	if i, ok := s.index[key]; ok {
		if ent.Confidence > s.items[i].Confidence {
			s.items[i] = ent
		}
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, ent)
}
