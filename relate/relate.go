// Package relate infers typed relationships between extracted entities
// from bounded-window co-occurrence patterns in the full conversation text.
package relate

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/vocab"
)

// Builder applies the vocabulary's relationship rules.
type Builder struct {
	vocab  *vocab.Tables
	logger *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder) error

// WithVocabulary sets the rule tables.
func WithVocabulary(tables *vocab.Tables) Option {
	return func(b *Builder) error {
		if tables == nil {
			return fmt.Errorf("vocabulary is nil")
		}
		b.vocab = tables
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) error {
		b.logger = logger
		return nil
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		vocab:  vocab.Default(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "relationships")
	return b, nil
}

// Infer returns the relationships supported by text between the given
// entities. Each (from, type, to) triple appears once, carrying the
// highest confidence found for it.
func (b *Builder) Infer(entities []core.ExtractedEntity, text string) []core.InferredRelationship {
	byCategory := make(map[core.Category][]string)
	for _, ent := range entities {
		byCategory[ent.Category] = append(byCategory[ent.Category], ent.Name)
	}
	lower := strings.ToLower(text)

	var set relationshipSet
	for r := range b.vocab.Relationships {
		rule := &b.vocab.Relationships[r]
		from := byCategory[rule.From]
		to := byCategory[rule.To]

		switch rule.Pairing {
		case vocab.PairCross:
			for _, a := range from {
				for _, c := range to {
					b.try(&set, rule, a, c, text, lower)
				}
			}
		case vocab.PairUnordered:
			for i := range from {
				for j := i + 1; j < len(from); j++ {
					b.try(&set, rule, from[i], from[j], text, lower)
				}
			}
		case vocab.PairOrdered:
			for i := range from {
				for j := range from {
					if i != j {
						b.try(&set, rule, from[i], from[j], text, lower)
					}
				}
			}
		}
	}

	b.logger.Debug("inferred relationships", "entities", len(entities), "relationships", len(set.items))
	return set.items
}

func (b *Builder) try(set *relationshipSet, rule *vocab.RelationshipRule, from, to, text, lower string) {
	if from == to {
		return
	}
	if !strings.Contains(lower, strings.ToLower(from)) || !strings.Contains(lower, strings.ToLower(to)) {
		return
	}

	re, err := regexp.Compile(Pattern(rule, from, to))
	if err != nil {
		b.logger.Warn("skipping uncompilable relationship pattern", "type", rule.Type, "from", from, "to", to, "err", err)
		return
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return
	}
	match := tightest(re, from, text, loc)

	set.add(core.InferredRelationship{
		From:       from,
		To:         to,
		Type:       rule.Type,
		Confidence: rule.Confidence,
		Weight:     rule.Weight,
		Excerpt:    strings.Join(strings.Fields(match), " "),
	})
}

// tightest re-anchors the match at loc on the last occurrence of from that
// still matches, so the excerpt starts at the subject nearest the connector.
func tightest(re *regexp.Regexp, from, text string, loc []int) string {
	subject := regexp.MustCompile("(?i)" + vocab.WordPattern(from))
	span := text[loc[0]:loc[1]]
	starts := subject.FindAllStringIndex(span, -1)
	for i := len(starts) - 1; i > 0; i-- {
		rest := text[loc[0]+starts[i][0]:]
		if m := re.FindStringIndex(rest); m != nil && m[0] == 0 {
			return rest[:m[1]]
		}
	}
	return span
}

// Pattern builds the case-insensitive template for rule: from, at most
// Window characters, a connector, at most Window characters, then to.
func Pattern(rule *vocab.RelationshipRule, from, to string) string {
	gap := `[\s\S]{0,` + strconv.Itoa(rule.Window) + `}?`
	return "(?i)" + vocab.WordPattern(from) + gap + rule.ConnectorPattern() + gap + vocab.WordPattern(to)
}

type relationshipSet struct {
	items []core.InferredRelationship
	index map[string]int
}

func (s *relationshipSet) add(rel core.InferredRelationship) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := rel.Key()
	if i, ok := s.index[key]; ok {
		if rel.Confidence > s.items[i].Confidence {
			s.items[i] = rel
		}
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, rel)
}
