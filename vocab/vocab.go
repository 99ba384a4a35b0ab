package vocab

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/kgingest/core"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Tier groups entity tables by how specific their terms are.
type Tier string

const (
	TierProper  Tier = "proper"  // known proper nouns
	TierTerm    Tier = "term"    // technology and deliverable terms
	TierGeneric Tier = "generic" // broad phrases prone to false positives
)

var tierOrder = []Tier{TierProper, TierTerm, TierGeneric}

// Pairing controls which entity pairs a relationship rule is tested against.
type Pairing string

const (
	// PairCross tests every (from, to) pair across two categories.
	PairCross Pairing = "cross"
	// PairUnordered tests each pair within one category once (i<j).
	PairUnordered Pairing = "unordered"
	// PairOrdered tests every ordered pair within one category (i!=j).
	PairOrdered Pairing = "ordered"
)

// Term is one compiled entity pattern.
type Term struct {
	Name       string // empty means the matched text is the name
	Pattern    *regexp.Regexp
	Confidence float64
}

// EntityTable is one extraction pass over a chunk.
type EntityTable struct {
	Pass        string
	Category    core.Category
	Description string
	Tier        Tier
	Terms       []Term
}

// Participant is a known conversation participant.
type Participant struct {
	Name    string
	Pattern *regexp.Regexp
}

// RelationshipRule describes a bounded-window relationship template:
// the source name, up to Window characters, a connector, up to Window
// characters, then the target name.
type RelationshipRule struct {
	Type       string
	From       core.Category
	To         core.Category
	Pairing    Pairing
	Connectors []string
	Window     int
	Confidence float64
	Weight     int
}

// ConnectorPattern returns the regex alternation of the rule's connectors.
func (r *RelationshipRule) ConnectorPattern() string {
	alts := make([]string, len(r.Connectors))
	for i, c := range r.Connectors {
		alts[i] = WordPattern(c)
	}
	return "(?:" + strings.Join(alts, "|") + ")"
}

// Tables is the compiled, immutable vocabulary.
type Tables struct {
	Entities      []EntityTable
	Participants  []Participant
	Relationships []RelationshipRule
}

type fileTerm struct {
	Name          string   `yaml:"name"`
	Aliases       []string `yaml:"aliases"`
	Pattern       string   `yaml:"pattern"`
	CaseSensitive bool     `yaml:"caseSensitive"`
	Confidence    float64  `yaml:"confidence"`
}

type fileTable struct {
	Pass        string     `yaml:"pass"`
	Category    string     `yaml:"category"`
	Description string     `yaml:"description"`
	Tier        Tier       `yaml:"tier"`
	Confidence  float64    `yaml:"confidence"`
	Terms       []fileTerm `yaml:"terms"`
}

type fileRule struct {
	Type       string   `yaml:"type"`
	From       string   `yaml:"from"`
	To         string   `yaml:"to"`
	Pairing    Pairing  `yaml:"pairing"`
	Connectors []string `yaml:"connectors"`
	Window     int      `yaml:"window"`
	Confidence float64  `yaml:"confidence"`
	Weight     int      `yaml:"weight"`
}

type file struct {
	Entities      []fileTable `yaml:"entities"`
	Participants  []string    `yaml:"participants"`
	Relationships []fileRule  `yaml:"relationships"`
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
)

// Default returns the built-in vocabulary. It is compiled once per process.
// The embedded data is validated by tests, so a failure here is a build defect.
func Default() *Tables {
	defaultOnce.Do(func() {
		t, err := Parse(defaultYAML)
		if err != nil {
			panic(fmt.Sprintf("vocab: invalid embedded vocabulary: %v", err))
		}
		defaultTables = t
	})
	return defaultTables
}

// Load reads and compiles a vocabulary file.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse compiles YAML vocabulary data into Tables.
func Parse(data []byte) (*Tables, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidVocabulary, err)
	}

	t := &Tables{}
	for _, ft := range f.Entities {
		table, err := compileTable(ft)
		if err != nil {
			return nil, err
		}
		t.Entities = append(t.Entities, table)
	}

	for _, name := range f.Participants {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: empty participant name", ErrInvalidVocabulary)
		}
		t.Participants = append(t.Participants, Participant{
			Name:    name,
			Pattern: regexp.MustCompile("(?i)" + WordPattern(name)),
		})
	}

	for _, fr := range f.Relationships {
		rule, err := compileRule(fr)
		if err != nil {
			return nil, err
		}
		t.Relationships = append(t.Relationships, rule)
	}

	if err := checkTierOrder(t.Entities); err != nil {
		return nil, err
	}
	return t, nil
}

func compileTable(ft fileTable) (EntityTable, error) {
	category, err := core.ParseCategory(ft.Category)
	if err != nil {
		return EntityTable{}, fmt.Errorf("%w: pass %q: %w", ErrInvalidVocabulary, ft.Pass, err)
	}
	if !isKnownTier(ft.Tier) {
		return EntityTable{}, fmt.Errorf("%w: pass %q: unknown tier %q", ErrInvalidVocabulary, ft.Pass, ft.Tier)
	}

	table := EntityTable{
		Pass:        ft.Pass,
		Category:    category,
		Description: ft.Description,
		Tier:        ft.Tier,
	}
	for _, term := range ft.Terms {
		conf := term.Confidence
		if conf == 0 {
			conf = ft.Confidence
		}
		if conf <= 0 || conf > 1 {
			return EntityTable{}, fmt.Errorf("%w: pass %q term %q: confidence %v out of range", ErrInvalidVocabulary, ft.Pass, term.Name, conf)
		}

		expr := term.Pattern
		if expr == "" {
			aliases := term.Aliases
			if len(aliases) == 0 {
				aliases = []string{term.Name}
			}
			alts := make([]string, 0, len(aliases))
			for _, a := range aliases {
				if strings.TrimSpace(a) == "" {
					return EntityTable{}, fmt.Errorf("%w: pass %q: term without name or pattern", ErrInvalidVocabulary, ft.Pass)
				}
				alts = append(alts, WordPattern(a))
			}
			expr = "(?:" + strings.Join(alts, "|") + ")"
		}
		if !term.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return EntityTable{}, fmt.Errorf("%w: pass %q term %q: %w", ErrInvalidVocabulary, ft.Pass, term.Name, err)
		}

		table.Terms = append(table.Terms, Term{
			Name:       term.Name,
			Pattern:    re,
			Confidence: conf,
		})
	}
	return table, nil
}

func compileRule(fr fileRule) (RelationshipRule, error) {
	from, err := core.ParseCategory(fr.From)
	if err != nil {
		return RelationshipRule{}, fmt.Errorf("%w: rule %q: %w", ErrInvalidVocabulary, fr.Type, err)
	}
	to, err := core.ParseCategory(fr.To)
	if err != nil {
		return RelationshipRule{}, fmt.Errorf("%w: rule %q: %w", ErrInvalidVocabulary, fr.Type, err)
	}

	switch {
	case fr.Type == "":
		return RelationshipRule{}, fmt.Errorf("%w: rule without type", ErrInvalidVocabulary)
	case len(fr.Connectors) == 0:
		return RelationshipRule{}, fmt.Errorf("%w: rule %q has no connectors", ErrInvalidVocabulary, fr.Type)
	case fr.Window < 1 || fr.Window > 1000:
		return RelationshipRule{}, fmt.Errorf("%w: rule %q: window %d out of range", ErrInvalidVocabulary, fr.Type, fr.Window)
	case !core.IsValidConfidence(fr.Confidence) || fr.Confidence == 0:
		return RelationshipRule{}, fmt.Errorf("%w: rule %q: confidence %v out of range", ErrInvalidVocabulary, fr.Type, fr.Confidence)
	case fr.Weight < 1 || fr.Weight > 10:
		return RelationshipRule{}, fmt.Errorf("%w: rule %q: weight %d out of range", ErrInvalidVocabulary, fr.Type, fr.Weight)
	}

	switch fr.Pairing {
	case PairCross:
	case PairUnordered, PairOrdered:
		if from != to {
			return RelationshipRule{}, fmt.Errorf("%w: rule %q: %s pairing needs one category", ErrInvalidVocabulary, fr.Type, fr.Pairing)
		}
	default:
		return RelationshipRule{}, fmt.Errorf("%w: rule %q: unknown pairing %q", ErrInvalidVocabulary, fr.Type, fr.Pairing)
	}

	return RelationshipRule{
		Type:       fr.Type,
		From:       from,
		To:         to,
		Pairing:    fr.Pairing,
		Connectors: fr.Connectors,
		Window:     fr.Window,
		Confidence: fr.Confidence,
		Weight:     fr.Weight,
	}, nil
}

// checkTierOrder verifies mean confidence strictly decreases from proper
// nouns to terms to generic phrases. Tiers without terms are skipped.
func checkTierOrder(tables []EntityTable) error {
	sums := make(map[Tier]float64)
	counts := make(map[Tier]int)
	for _, table := range tables {
		for _, term := range table.Terms {
			sums[table.Tier] += term.Confidence
			counts[table.Tier]++
		}
	}

	prevMean := 2.0
	var prevTier Tier
	for _, tier := range tierOrder {
		if counts[tier] == 0 {
			continue
		}
		mean := sums[tier] / float64(counts[tier])
		if mean >= prevMean {
			return fmt.Errorf("%w: mean confidence of tier %q (%.3f) must be below tier %q (%.3f)",
				ErrConfidenceOrder, tier, mean, prevTier, prevMean)
		}
		prevMean, prevTier = mean, tier
	}
	return nil
}

func isKnownTier(t Tier) bool {
	for _, known := range tierOrder {
		if t == known {
			return true
		}
	}
	return false
}

// WordPattern quotes s for use in a regex and adds word boundaries on the
// sides that start or end with a word character.
func WordPattern(s string) string {
	quoted := regexp.QuoteMeta(s)
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	if isWordRune(first) {
		quoted = `\b` + quoted
	}
	if isWordRune(last) {
		quoted += `\b`
	}
	return quoted
}

func isWordRune(r rune) bool {
	return r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)))
}
