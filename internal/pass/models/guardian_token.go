package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

// GuardianToken authorizes a guardian's one-shot decision on a home pass.
// Possession of the emailed plaintext is the whole credential, so the token
// is 256 bits of randomness and only its SHA-256 digest is stored. A token
// is consumed on first use regardless of the decision's outcome.
type GuardianToken struct {
	TokenHash     string
	PassID        id.PassID
	GuardianEmail string
	ExpiresAt     time.Time
	ConsumedAt    *time.Time
	CreatedAt     time.Time
}

// NewGuardianToken mints a token for the given pass. The returned plaintext
// goes into the guardian email and is never persisted.
func NewGuardianToken(passID id.PassID, guardianEmail string, ttl time.Duration, now time.Time) (plaintext string, record *GuardianToken) {
	raw := make([]byte, 32)
	// rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(raw)
	plaintext = hex.EncodeToString(raw)
	return plaintext, &GuardianToken{
		TokenHash:     HashGuardianToken(plaintext),
		PassID:        passID,
		GuardianEmail: guardianEmail,
		ExpiresAt:     now.Add(ttl),
		CreatedAt:     now,
	}
}

// HashGuardianToken derives the at-rest digest for a plaintext token.
func HashGuardianToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// ValidateForConsume checks the single-use and expiry invariants. Stores call
// this under their write lock so replayed tokens lose deterministically.
func (t *GuardianToken) ValidateForConsume(now time.Time) error {
	if t.ConsumedAt != nil {
		return sentinel.ErrAlreadyUsed
	}
	if now.After(t.ExpiresAt) {
		return sentinel.ErrExpired
	}
	return nil
}

// MarkConsumed stamps the token as used.
func (t *GuardianToken) MarkConsumed(now time.Time) {
	consumed := now
	t.ConsumedAt = &consumed
}
