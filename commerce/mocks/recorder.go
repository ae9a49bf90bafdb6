package mocks

import "sync"

// Recorder is a commerce.Recorder that keeps what it was told.
type Recorder struct {
	mu       sync.Mutex
	Outcomes []string
	Orphaned map[string]int
}

func (r *Recorder) StoreDeleted(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Outcomes = append(r.Outcomes, outcome)
}

func (r *Recorder) BlobCleanupFailed(op string, keys int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Orphaned == nil {
		r.Orphaned = make(map[string]int)
	}
	r.Orphaned[op] += keys
}
