package core

// SearchResult is one hit returned from a memory similarity lookup.
type SearchResult struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MemoryStore is the opaque similarity-lookup capability consumed by agents
// to recall prior decisions. The core never calls it; implementations may
// back Search with embeddings, keywords or any heuristic.
type MemoryStore interface {
	Store(workflowID, content string, metadata map[string]any) error
	Search(workflowID, query string, limit int) ([]SearchResult, error)
}
