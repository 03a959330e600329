// Package store persists passes and guardian approval tokens.
//
// Stores are pure I/O. All lifecycle rules live on the models; services load
// an aggregate, apply a transition, and persist it through a conditional
// write so concurrent actors cannot both win the same transition.
package store

import (
	"context"
	"time"

	"outpass/internal/pass/models"
	id "outpass/pkg/domain"
)

// Store persists passes.
//
// Error contract:
//   - FindByID and FindByQRCode return ErrNotFound for missing passes
//   - UpdateStatus returns ErrInvalidState when the pass is no longer in the
//     expected status (a concurrent transition won)
//   - CheckOut returns ErrConflict when the student already has another pass
//     checked out, and ErrInvalidState when the pass itself is not APPROVED
type Store interface {
	Create(ctx context.Context, pass *models.Pass) error
	FindByID(ctx context.Context, passID id.PassID) (*models.Pass, error)
	FindByQRCode(ctx context.Context, qrCode string) (*models.Pass, error)
	ListByStudent(ctx context.Context, studentID id.StudentID) ([]*models.Pass, error)
	ListByStatuses(ctx context.Context, statuses ...models.Status) ([]*models.Pass, error)
	// HasActiveOnDate reports whether the student already holds a PENDING or
	// APPROVED pass of the given kind on the given calendar day. Passes that
	// have progressed past APPROVED, or out of the lifecycle entirely, do
	// not block a new application.
	HasActiveOnDate(ctx context.Context, studentID id.StudentID, kind models.Kind, date time.Time) (bool, error)
	// UpdateStatus persists the pass conditionally on its stored status still
	// being expected. The compare-and-set is what makes every lifecycle
	// transition single-winner under concurrency.
	UpdateStatus(ctx context.Context, pass *models.Pass, expected models.Status) error
	// CheckOut persists a transition to CURRENTLY_OUT, conditional on the
	// pass still being APPROVED and on the student having no other pass
	// currently out. Both conditions are evaluated in one atomic write.
	CheckOut(ctx context.Context, pass *models.Pass) error
}

// GuardianTokenStore persists single-use guardian approval tokens.
// Only the SHA-256 digest of a token is ever stored.
//
// Error contract:
//   - FindByHash returns ErrNotFound for an unknown digest
//   - Consume returns ErrNotFound, ErrAlreadyUsed, or ErrExpired
type GuardianTokenStore interface {
	Create(ctx context.Context, token *models.GuardianToken) error
	FindByHash(ctx context.Context, tokenHash string) (*models.GuardianToken, error)
	// Consume marks the token used in a single conditional write so a token
	// replayed concurrently is honored exactly once.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*models.GuardianToken, error)
}
