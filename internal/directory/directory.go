// Package directory resolves student contact details and hostel block
// assignments. Account management lives in a separate system; this package
// is the read-only view the pass workflows need.
package directory

//go:generate mockgen -source=directory.go -destination=mocks/mocks.go -package=mocks Directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

// Contact is what the workflows know about a student.
type Contact struct {
	StudentID     id.StudentID `json:"student_id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	GuardianEmail string       `json:"guardian_email"`
	Block         string       `json:"block"`
}

// Directory looks up students.
//
// Error contract: Student returns ErrNotFound for unknown ids.
type Directory interface {
	Student(ctx context.Context, studentID id.StudentID) (*Contact, error)
}

// InMemoryDirectory serves contacts from memory. Production deployments load
// it from the roster export file at boot; tests register contacts directly.
type InMemoryDirectory struct {
	mu       sync.RWMutex
	contacts map[id.StudentID]*Contact
}

func NewInMemory() *InMemoryDirectory {
	return &InMemoryDirectory{contacts: make(map[id.StudentID]*Contact)}
}

// LoadFromFile builds a directory from a JSON roster export, an array of
// contact objects.
func LoadFromFile(path string) (*InMemoryDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster file: %w", err)
	}
	var contacts []*Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, fmt.Errorf("parse roster file: %w", err)
	}
	d := NewInMemory()
	for _, c := range contacts {
		if uuid.UUID(c.StudentID) == uuid.Nil {
			return nil, fmt.Errorf("roster entry %q has no student id", c.Name)
		}
		d.Register(c)
	}
	return d, nil
}

// Register adds or replaces a contact.
func (d *InMemoryDirectory) Register(contact *Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	clone := *contact
	d.contacts[contact.StudentID] = &clone
}

func (d *InMemoryDirectory) Student(_ context.Context, studentID id.StudentID) (*Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	contact, ok := d.contacts[studentID]
	if !ok {
		return nil, fmt.Errorf("student not in directory: %w", sentinel.ErrNotFound)
	}
	clone := *contact
	return &clone, nil
}
