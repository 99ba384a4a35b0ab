// Package names validates candidate entity names and detects near-duplicate
// entities before they are written.
package names

import (
	"regexp"
	"strings"

	"github.com/poiesic/kgingest/core"
)

// DuplicateThreshold is the minimum similarity for two names to be
// considered the same entity.
const DuplicateThreshold = 0.85

var (
	whitespace      = regexp.MustCompile(`\s+`)
	punctuationOnly = regexp.MustCompile(`^[\d\s\p{P}\p{S}]+$`)
	separators      = regexp.MustCompile(`[\s\-_]+`)
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
}

// Result is the outcome of validating one name.
type Result struct {
	Valid      bool
	Normalized string
	Reason     string
	Warnings   []string
}

// Validate normalizes name and applies the name rules in order. The first
// failing rule decides the result.
func Validate(name string) Result {
	normalized := Normalize(name)
	res := Result{Normalized: normalized}

	runes := []rune(normalized)
	switch {
	case normalized == "":
		res.Reason = "name is empty"
	case len(runes) > core.MaxNameLength:
		res.Normalized = string(runes[:core.MaxNameLength])
		res.Reason = "name exceeds maximum length"
	case punctuationOnly.MatchString(normalized):
		res.Reason = "name contains no letters"
	case stopWords[strings.ToLower(normalized)]:
		res.Reason = "name is a stop word"
	default:
		res.Valid = true
		if len(runes) == 1 {
			res.Warnings = append(res.Warnings, "single-character name")
		}
	}
	return res
}

// Normalize trims name and collapses internal whitespace runs to one space.
func Normalize(name string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(name), " ")
}

// stripped lowercases name and removes whitespace, hyphens and underscores.
func stripped(name string) string {
	return separators.ReplaceAllString(strings.ToLower(name), "")
}

// Similarity returns 1 - distance/maxLen over the stripped forms of a and b.
func Similarity(a, b string) float64 {
	return similarity([]rune(stripped(a)), []rune(stripped(b)))
}

func similarity(a, b []rune) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(a, b))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// FindDuplicate returns an entity in existing whose name matches name
// case-insensitively, or failing that one whose similarity is at least
// DuplicateThreshold. It returns nil when there is no duplicate.
func FindDuplicate(name string, existing []*core.Entity) *core.Entity {
	idx := NewIndex(existing)
	return idx.Find(name)
}
