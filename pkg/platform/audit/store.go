package audit

import (
	"context"
	"sync"

	id "outpass/pkg/domain"
)

// Store persists ledger events. Append-only: events are never mutated or
// deleted by application code.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByStudent(ctx context.Context, studentID id.StudentID) ([]Event, error)
}

// InMemoryStore keeps events in memory for tests and dev.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByStudent(_ context.Context, studentID id.StudentID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListAll returns every recorded event; test helper.
func (s *InMemoryStore) ListAll() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...)
}
