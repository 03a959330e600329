package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"outpass/internal/pass/models"
	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

// InMemoryStore keeps passes in memory for tests and local development.
// A single mutex spans every check-and-mutate so the memory store gives the
// same single-winner guarantees as the conditional SQL in the Postgres store.
type InMemoryStore struct {
	mu     sync.RWMutex
	passes map[id.PassID]*models.Pass
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{passes: make(map[id.PassID]*models.Pass)}
}

func (s *InMemoryStore) Create(_ context.Context, pass *models.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.passes[pass.ID]; exists {
		return fmt.Errorf("pass already exists: %w", sentinel.ErrConflict)
	}
	clone := *pass
	s.passes[pass.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, passID id.PassID) (*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pass, ok := s.passes[passID]
	if !ok {
		return nil, fmt.Errorf("pass not found: %w", sentinel.ErrNotFound)
	}
	clone := *pass
	return &clone, nil
}

func (s *InMemoryStore) FindByQRCode(_ context.Context, qrCode string) (*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if qrCode == "" {
		return nil, fmt.Errorf("pass not found: %w", sentinel.ErrNotFound)
	}
	for _, pass := range s.passes {
		if pass.QRCode == qrCode {
			clone := *pass
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("pass not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryStore) ListByStudent(_ context.Context, studentID id.StudentID) ([]*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Pass
	for _, pass := range s.passes {
		if pass.StudentID == studentID {
			clone := *pass
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) ListByStatuses(_ context.Context, statuses ...models.Status) ([]*models.Pass, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[models.Status]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}
	var out []*models.Pass
	for _, pass := range s.passes {
		if wanted[pass.Status] {
			clone := *pass
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) HasActiveOnDate(_ context.Context, studentID id.StudentID, kind models.Kind, date time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	year, month, day := date.Date()
	for _, pass := range s.passes {
		if pass.StudentID != studentID || pass.Kind != kind {
			continue
		}
		switch pass.Status {
		case models.StatusPending, models.StatusApproved:
		default:
			continue
		}
		passDate := pass.Date
		if kind == models.KindHome {
			passDate = pass.FromDate
		}
		py, pm, pd := passDate.Date()
		if py == year && pm == month && pd == day {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) UpdateStatus(_ context.Context, pass *models.Pass, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.passes[pass.ID]
	if !ok {
		return fmt.Errorf("pass not found: %w", sentinel.ErrNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("pass is no longer %s: %w", expected, sentinel.ErrInvalidState)
	}
	clone := *pass
	s.passes[pass.ID] = &clone
	return nil
}

func (s *InMemoryStore) CheckOut(_ context.Context, pass *models.Pass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.passes[pass.ID]
	if !ok {
		return fmt.Errorf("pass not found: %w", sentinel.ErrNotFound)
	}
	if stored.Status != models.StatusApproved {
		return fmt.Errorf("pass is no longer APPROVED: %w", sentinel.ErrInvalidState)
	}
	for _, other := range s.passes {
		if other.StudentID == pass.StudentID && other.Status == models.StatusCurrentlyOut {
			return fmt.Errorf("student already has a pass checked out: %w", sentinel.ErrConflict)
		}
	}
	clone := *pass
	s.passes[pass.ID] = &clone
	return nil
}

func sortNewestFirst(passes []*models.Pass) {
	sort.Slice(passes, func(i, j int) bool {
		return passes[i].CreatedAt.After(passes[j].CreatedAt)
	})
}

// InMemoryGuardianTokenStore keeps guardian tokens in memory.
type InMemoryGuardianTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*models.GuardianToken
}

func NewInMemoryGuardianTokens() *InMemoryGuardianTokenStore {
	return &InMemoryGuardianTokenStore{tokens: make(map[string]*models.GuardianToken)}
}

func (s *InMemoryGuardianTokenStore) Create(_ context.Context, token *models.GuardianToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *token
	s.tokens[token.TokenHash] = &clone
	return nil
}

func (s *InMemoryGuardianTokenStore) FindByHash(_ context.Context, tokenHash string) (*models.GuardianToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("guardian token not found: %w", sentinel.ErrNotFound)
	}
	clone := *token
	return &clone, nil
}

func (s *InMemoryGuardianTokenStore) Consume(_ context.Context, tokenHash string, now time.Time) (*models.GuardianToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("guardian token not found: %w", sentinel.ErrNotFound)
	}
	if err := token.ValidateForConsume(now); err != nil {
		return nil, err
	}
	token.MarkConsumed(now)
	clone := *token
	return &clone, nil
}
