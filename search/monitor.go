package search

import "github.com/poiesic/docindex/core"

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterQueryEmbedding(dimensions int)
	AfterSemanticSearch(matches []core.SearchResult)
	VerbatimHit(record *core.ChunkRecord)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)                 {}
func (n *noopMonitor) AfterSemanticSearch(_ []core.SearchResult) {}
func (n *noopMonitor) VerbatimHit(_ *core.ChunkRecord)           {}
func (n *noopMonitor) Finish(_ []core.SearchResult)              {}
