package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sochen-ai/sochen/core"
)

// storedMemory is the internal representation persisted by InMemoryStore.
type storedMemory struct {
	id       string
	content  string
	tokens   map[string]struct{}
	metadata map[string]any
}

// InMemoryStore is a process-local core.MemoryStore. Entries are scoped per
// workflow and scored on Search by token overlap between the query and the
// stored content. Suitable for tests and single-process deployments; swap for
// a vector index for semantic retrieval.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[string][]storedMemory // workflowID -> stored memories, append order
}

var _ core.MemoryStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]storedMemory)}
}

// Store appends a new memory for the workflow, generating an incremental id.
func (m *InMemoryStore) Store(workflowID string, content string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := storedMemory{
		id:       fmt.Sprintf("mem_%d", len(m.storage[workflowID])),
		content:  content,
		tokens:   tokenize(content),
		metadata: metadata,
	}
	m.storage[workflowID] = append(m.storage[workflowID], entry)
	return nil
}

// Search ranks the workflow's memories by the fraction of query tokens found
// in each entry and returns the top matches up to limit. Entries with no
// overlap are omitted; an empty query matches everything with score zero.
func (m *InMemoryStore) Search(workflowID string, query string, limit int) ([]core.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	queryTokens := tokenize(query)
	results := make([]core.SearchResult, 0, limit)
	for _, stored := range m.storage[workflowID] {
		score := overlap(queryTokens, stored.tokens)
		if len(queryTokens) > 0 && score == 0 {
			continue
		}
		md := make(map[string]any, len(stored.metadata))
		for k, v := range stored.metadata {
			md[k] = v
		}
		results = append(results, core.SearchResult{
			ID:       stored.id,
			Content:  stored.content,
			Score:    score,
			Metadata: md,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func tokenize(s string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:()[]{}\"'`")
		if len(f) > 2 {
			tokens[f] = struct{}{}
		}
	}
	return tokens
}

// overlap returns the fraction of query tokens present in the entry.
func overlap(query, entry map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for t := range query {
		if _, ok := entry[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
