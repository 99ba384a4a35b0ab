package names

import (
	"strings"

	"github.com/poiesic/kgingest/core"
)

// Index answers duplicate lookups against a snapshot of entities. It is
// built once per ingestion run and extended with Add as new entities are
// created, so later candidates in the same run see earlier ones.
//
// An Index is not safe for concurrent use.
type Index struct {
	entries []indexEntry
	exact   map[string]int
	strip   map[string]int
}

type indexEntry struct {
	entity   *core.Entity
	stripped []rune
}

// NewIndex builds an index over entities, preserving their order.
func NewIndex(entities []*core.Entity) *Index {
	idx := &Index{
		exact: make(map[string]int, len(entities)),
		strip: make(map[string]int, len(entities)),
	}
	for _, ent := range entities {
		idx.Add(ent)
	}
	return idx
}

// Len returns the number of indexed entities.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Add indexes ent. Earlier entries win ties on lookup.
func (idx *Index) Add(ent *core.Entity) {
	if ent == nil {
		return
	}
	i := len(idx.entries)
	s := stripped(ent.Name)
	idx.entries = append(idx.entries, indexEntry{entity: ent, stripped: []rune(s)})
	if _, ok := idx.exact[strings.ToLower(ent.Name)]; !ok {
		idx.exact[strings.ToLower(ent.Name)] = i
	}
	if _, ok := idx.strip[s]; !ok {
		idx.strip[s] = i
	}
}

// Find returns the duplicate of name, or nil.
func (idx *Index) Find(name string) *core.Entity {
	if i, ok := idx.exact[strings.ToLower(name)]; ok {
		return idx.entries[i].entity
	}

	s := stripped(name)
	if i, ok := idx.strip[s]; ok {
		return idx.entries[i].entity
	}

	target := []rune(s)
	for _, e := range idx.entries {
		if !lengthsCompatible(len(target), len(e.stripped)) {
			continue
		}
		if similarity(target, e.stripped) >= DuplicateThreshold {
			return e.entity
		}
	}
	return nil
}

// lengthsCompatible reports whether two strings of these lengths could
// reach DuplicateThreshold. The edit distance is at least the length
// difference, so larger gaps can be skipped without computing it.
func lengthsCompatible(a, b int) bool {
	longest := max(a, b)
	if longest == 0 {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return 1-float64(diff)/float64(longest) >= DuplicateThreshold
}
