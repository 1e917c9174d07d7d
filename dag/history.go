package dag

import (
	"sync"

	"github.com/swingdesk/swingdesk/errors"
)

// History retains recent execution results in memory, newest first, capped
// at a fixed limit. Safe for concurrent use by the engine and the API.
type History struct {
	mu      sync.RWMutex
	results []*ExecutionResult
	limit   int
}

// NewHistory creates a history capped at limit entries.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = 1
	}
	return &History{limit: limit}
}

// Append records a finished execution, evicting the oldest entry when the
// cap is reached.
func (h *History) Append(r *ExecutionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.results = append([]*ExecutionResult{r}, h.results...)
	if len(h.results) > h.limit {
		h.results = h.results[:h.limit]
	}
}

// List returns up to n recent executions, newest first. n <= 0 returns all
// retained entries.
func (h *History) List(n int) []*ExecutionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.results) {
		n = len(h.results)
	}
	out := make([]*ExecutionResult, n)
	copy(out, h.results[:n])
	return out
}

// Get returns the execution with the given identifier.
func (h *History) Get(id string) (*ExecutionResult, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, r := range h.results {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.NotFound("execution", id)
}

// Len returns the number of retained executions.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.results)
}
