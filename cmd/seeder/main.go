package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/kgingest"
	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/ingestion"
	"github.com/poiesic/kgingest/vocab"
)

// Filler lines keep generated conversations from being pure entity lists.
var sentences = []string{
	"The quick brown fox jumps over the lazy dog.",
	"Rain drummed on the rooftop, creating a soothing rhythm.",
	"The meeting could have been an email, but the email refused.",
	"The cache invalidation problem solved itself out of spite.",
	"Documentation exists in a superposition until observed.",
	"The edge case became the primary use case overnight.",
	"Git blame pointed at everyone simultaneously.",
	"The build pipeline became self-referential.",
	"Load balancers developed preferences.",
	"The debugger needed debugging.",
}

var (
	outDir       = flag.String("out", "./seed_conversations", "directory for generated conversations")
	dbPath       = flag.String("db", "./kgingest_db", "database directory")
	count        = flag.Int("n", 20, "number of conversations to generate")
	seed         = flag.Uint64("seed", 1, "random seed")
	seedFileName = flag.String("src", "", "file of filler lines")
	generateOnly = flag.Bool("generate-only", false, "write conversations without ingesting them")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

// linesFromFile returns an iterator over the non-blank lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}, nil
}

// namesByCategory collects the fixed names of every proper and term table.
func namesByCategory(tables *vocab.Tables) map[core.Category][]string {
	names := make(map[core.Category][]string)
	for _, table := range tables.Entities {
		if table.Tier == vocab.TierGeneric {
			continue
		}
		for _, term := range table.Terms {
			if term.Name != "" {
				names[table.Category] = append(names[table.Category], term.Name)
			}
		}
	}
	return names
}

type generator struct {
	rng     *rand.Rand
	names   map[core.Category][]string
	rules   []vocab.RelationshipRule
	fillers []string
}

func newGenerator(tables *vocab.Tables, fillers []string, seed uint64) *generator {
	g := &generator{
		rng:     rand.New(rand.NewPCG(seed, seed)),
		names:   namesByCategory(tables),
		fillers: fillers,
	}
	for _, rule := range tables.Relationships {
		if len(g.names[rule.From]) > 0 && len(g.names[rule.To]) > 0 && len(rule.Connectors) > 0 {
			g.rules = append(g.rules, rule)
		}
	}
	return g
}

func (g *generator) pick(list []string) string {
	return list[g.rng.IntN(len(list))]
}

// statement renders one relationship rule as a sentence its detector matches.
func (g *generator) statement() string {
	rule := g.rules[g.rng.IntN(len(g.rules))]
	from := g.pick(g.names[rule.From])
	to := g.pick(g.names[rule.To])
	return fmt.Sprintf("%s %s %s.", from, g.pick(rule.Connectors), to)
}

// conversation renders a Claude export dated day.
func (g *generator) conversation(day time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Claude Conversation - %s\n\n", day.Format("02/01/2006"))
	if projects := g.names[core.CategoryExecutiveAI]; len(projects) > 0 {
		fmt.Fprintf(&b, "Topic: %s\n\n", g.pick(projects))
	}
	turns := 2 + g.rng.IntN(4)
	for i := range turns {
		speaker := "User"
		if i%2 == 1 {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: ", speaker)
		if len(g.rules) > 0 {
			b.WriteString(g.statement())
			b.WriteString(" ")
		}
		if len(g.fillers) > 0 {
			b.WriteString(g.pick(g.fillers))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// writeConversations writes n generated conversations into dir and returns
// their paths.
func writeConversations(g *generator, dir string, n int, start time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	paths := make([]string, 0, n)
	for i := range n {
		day := start.AddDate(0, 0, i)
		path := filepath.Join(dir, fmt.Sprintf("seed-%04d.md", i))
		if err := os.WriteFile(path, []byte(g.conversation(day)), 0644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func main() {
	flag.Parse()

	fillers := sentences
	if *seedFileName != "" {
		lines, err := linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
		fillers = nil
		for line := range lines {
			fillers = append(fillers, line)
		}
	}

	g := newGenerator(vocab.Default(), fillers, *seed)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	paths, err := writeConversations(g, *outDir, *count, start)
	if err != nil {
		panic(err)
	}
	slog.Info("generated conversations", "dir", *outDir, "count", len(paths))
	if *generateOnly {
		return
	}

	db, err := kgingest.NewDatabase(*dbPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	pipeline, err := db.NewPipeline()
	if err != nil {
		panic(err)
	}
	batch, err := ingestion.NewBatch(pipeline, ingestion.WithConcurrency(4), ingestion.WithProgress(os.Stdout))
	if err != nil {
		panic(err)
	}

	summary, err := batch.Run(context.Background(), paths, ingestion.Request{})
	if err != nil {
		panic(err)
	}
	slog.Info("seeded database",
		"files", summary.Total,
		"failed", summary.Failed,
		"entities", summary.EntitiesCreated,
		"relationships", summary.RelationshipsCreated)
}
