package store

import (
	"context"
	"sync"

	"outpass/internal/gate/models"
	id "outpass/pkg/domain"
)

// InMemoryStore keeps gate logs in memory for tests and local development.
type InMemoryStore struct {
	mu   sync.RWMutex
	logs []*models.GateLog
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, log *models.GateLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *log
	s.logs = append(s.logs, &clone)
	return nil
}

func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]*models.GateLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.GateLog
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *s.logs[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *InMemoryStore) ListByPass(_ context.Context, passID id.PassID) ([]*models.GateLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.GateLog
	for _, log := range s.logs {
		if log.PassID != nil && *log.PassID == passID {
			clone := *log
			out = append(out, &clone)
		}
	}
	return out, nil
}
