package defaulter

import (
	"context"
	"fmt"
	"sync"
	"time"

	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

// Store persists defaulter records.
//
// Error contract:
//   - FindByID returns ErrNotFound when the record does not exist
//   - Clear returns ErrNotFound for a missing record and ErrInvalidState for
//     one that is already cleared
type Store interface {
	Create(ctx context.Context, record *Record) error
	FindByID(ctx context.Context, recordID id.DefaulterID) (*Record, error)
	HasActive(ctx context.Context, studentID id.StudentID) (bool, error)
	ListActive(ctx context.Context) ([]*Record, error)
	// Clear deactivates an active record, stamping who cleared it and when.
	// The deactivation is conditional on the record still being active so
	// two wardens clearing the same record race safely.
	Clear(ctx context.Context, recordID id.DefaulterID, clearedBy id.WardenID, now time.Time) (*Record, error)
}

// InMemoryStore keeps defaulter records in memory for tests/dev.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.DefaulterID]*Record
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.DefaulterID]*Record)}
}

func (s *InMemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.DefaulterID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("defaulter record not found: %w", sentinel.ErrNotFound)
	}
	clone := *record
	return &clone, nil
}

func (s *InMemoryStore) HasActive(_ context.Context, studentID id.StudentID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.records {
		if record.StudentID == studentID && record.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) ListActive(_ context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, record := range s.records {
		if record.IsActive {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Clear(_ context.Context, recordID id.DefaulterID, clearedBy id.WardenID, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, fmt.Errorf("defaulter record not found: %w", sentinel.ErrNotFound)
	}
	if !record.IsActive {
		return nil, fmt.Errorf("defaulter record already cleared: %w", sentinel.ErrInvalidState)
	}
	record.IsActive = false
	record.ClearedBy = &clearedBy
	cleared := now
	record.ClearedAt = &cleared
	clone := *record
	return &clone, nil
}
