package service

import (
	"sync"

	"baas/backend/services/degradation-service/internal/models"
)

// ResultStore keeps the latest completed run for the results API.
type ResultStore struct {
	mu     sync.RWMutex
	latest *models.RunResult
}

// NewResultStore returns an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Put replaces the latest run.
func (s *ResultStore) Put(result *models.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = result
}

// Latest returns the latest run. Results are never mutated after Put, so
// callers may read them without holding the lock.
func (s *ResultStore) Latest() (*models.RunResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}
