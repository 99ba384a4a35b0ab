package ingestion

import (
	"fmt"

	"github.com/poiesic/kgingest/core"
	"github.com/poiesic/kgingest/names"
)

// link is a relationship whose endpoints resolved to entities. Endpoints
// may be existing entities or entities the plan will create.
type link struct {
	rel  core.InferredRelationship
	from *core.Entity
	to   *core.Entity
}

// plan is the set of writes a run would make. Dry and live runs build it
// the same way, so a dry run reports exactly what a live run would do.
type plan struct {
	create     []*core.Entity
	candidates []core.ExtractedEntity // normalized, parallel to create
	skipped    []Skip
	links      []link
	unresolved []string
	warnings   []string
}

// buildPlan checks every candidate name, drops near-duplicates of snapshot
// entities and of candidates accepted earlier in the run, and resolves
// relationship endpoints by name.
func buildPlan(extracted []core.ExtractedEntity, inferred []core.InferredRelationship, snapshot []*core.Entity) *plan {
	p := &plan{}
	idx := names.NewIndex(snapshot)
	byName := make(map[string]*core.Entity)
	bind := func(name string, ent *core.Entity) {
		key := core.NameKey(name)
		if _, ok := byName[key]; !ok {
			byName[key] = ent
		}
	}

	for _, cand := range extracted {
		res := names.Validate(cand.Name)
		for _, w := range res.Warnings {
			p.warnings = append(p.warnings, fmt.Sprintf("entity %q: %s", res.Normalized, w))
		}
		if !res.Valid {
			p.skipped = append(p.skipped, Skip{Name: cand.Name, Category: cand.Category, Reason: res.Reason})
			continue
		}

		original := cand.Name
		cand.Name = res.Normalized
		if dup := idx.Find(cand.Name); dup != nil {
			p.skipped = append(p.skipped, Skip{
				Name:     cand.Name,
				Category: cand.Category,
				Reason:   fmt.Sprintf("duplicate of %q", dup.Name),
			})
			bind(original, dup)
			bind(cand.Name, dup)
			continue
		}

		ent := &core.Entity{
			Category:    cand.Category,
			Name:        cand.Name,
			Description: cand.Description,
			Confidence:  cand.Confidence,
			Excerpt:     cand.Excerpt,
		}
		idx.Add(ent)
		p.create = append(p.create, ent)
		p.candidates = append(p.candidates, cand)
		bind(original, ent)
		bind(cand.Name, ent)
	}

	type edge struct {
		from *core.Entity
		typ  string
		to   *core.Entity
	}
	seen := make(map[edge]bool)
	for _, rel := range inferred {
		from, to := byName[core.NameKey(rel.From)], byName[core.NameKey(rel.To)]
		switch {
		case from == nil || to == nil:
			p.unresolved = append(p.unresolved,
				fmt.Sprintf("relationship %s -[%s]-> %s: endpoint was not kept", rel.From, rel.Type, rel.To))
			continue
		case from == to:
			p.unresolved = append(p.unresolved,
				fmt.Sprintf("relationship %s -[%s]-> %s: endpoints resolve to the same entity", rel.From, rel.Type, rel.To))
			continue
		}
		e := edge{from, rel.Type, to}
		if seen[e] {
			continue
		}
		seen[e] = true
		p.links = append(p.links, link{rel: rel, from: from, to: to})
	}
	return p
}

func (p *plan) preview() *Preview {
	rels := make([]core.InferredRelationship, len(p.links))
	for i, l := range p.links {
		rels[i] = l.rel
	}
	return &Preview{
		Entities:      p.candidates,
		Relationships: rels,
		Skipped:       p.skipped,
	}
}
