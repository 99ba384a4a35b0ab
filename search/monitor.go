package search

import "github.com/poiesic/kgingest/core"

// Match kinds reported to a SearchMonitor.
const (
	MatchName        = "name"
	MatchDescription = "description"
	MatchWords       = "words"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query Query)
	AfterCandidateRetrieval(candidates []*core.Entity)
	Hit(entity *core.Entity, matchedOn string)
	Finish(results []*core.Entity)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query)                            {}
func (n *noopMonitor) AfterCandidateRetrieval(_ []*core.Entity) {}
func (n *noopMonitor) Hit(_ *core.Entity, _ string)             {}
func (n *noopMonitor) Finish(_ []*core.Entity)                  {}
