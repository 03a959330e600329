package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"outpass/internal/pass/models"
	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

// PostgresGuardianTokenStore persists guardian approval tokens in the
// guardian_tokens table, keyed by token digest.
type PostgresGuardianTokenStore struct {
	db *sql.DB
}

func NewPostgresGuardianTokens(db *sql.DB) *PostgresGuardianTokenStore {
	return &PostgresGuardianTokenStore{db: db}
}

func (s *PostgresGuardianTokenStore) Create(ctx context.Context, token *models.GuardianToken) error {
	const q = `
		INSERT INTO guardian_tokens (token_hash, pass_id, guardian_email, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, q,
		token.TokenHash, uuid.UUID(token.PassID), token.GuardianEmail,
		token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting guardian token: %w", err)
	}
	return nil
}

func (s *PostgresGuardianTokenStore) FindByHash(ctx context.Context, tokenHash string) (*models.GuardianToken, error) {
	const q = `
		SELECT token_hash, pass_id, guardian_email, expires_at, consumed_at, created_at
		FROM guardian_tokens
		WHERE token_hash = $1`
	token, err := scanGuardianToken(s.db.QueryRowContext(ctx, q, tokenHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("guardian token not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying guardian token: %w", err)
	}
	return token, nil
}

// Consume marks the token used in one conditional write. The consumed_at IS
// NULL and expires_at guards are in the UPDATE itself, so a replayed or
// concurrently submitted token is honored at most once.
func (s *PostgresGuardianTokenStore) Consume(ctx context.Context, tokenHash string, now time.Time) (*models.GuardianToken, error) {
	const q = `
		UPDATE guardian_tokens
		SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING token_hash, pass_id, guardian_email, expires_at, consumed_at, created_at`
	token, err := scanGuardianToken(s.db.QueryRowContext(ctx, q, tokenHash, now))
	if errors.Is(err, sql.ErrNoRows) {
		// Re-read to report which guard failed.
		existing, findErr := s.FindByHash(ctx, tokenHash)
		if findErr != nil {
			return nil, findErr
		}
		if existing.ConsumedAt != nil {
			return nil, fmt.Errorf("guardian token already used: %w", sentinel.ErrAlreadyUsed)
		}
		return nil, fmt.Errorf("guardian token expired: %w", sentinel.ErrExpired)
	}
	if err != nil {
		return nil, fmt.Errorf("consuming guardian token: %w", err)
	}
	return token, nil
}

type guardianTokenRow interface {
	Scan(dest ...any) error
}

func scanGuardianToken(row guardianTokenRow) (*models.GuardianToken, error) {
	var (
		token      models.GuardianToken
		passID     uuid.UUID
		consumedAt sql.NullTime
	)
	err := row.Scan(&token.TokenHash, &passID, &token.GuardianEmail,
		&token.ExpiresAt, &consumedAt, &token.CreatedAt)
	if err != nil {
		return nil, err
	}
	token.PassID = id.PassID(passID)
	if consumedAt.Valid {
		token.ConsumedAt = &consumedAt.Time
	}
	return &token, nil
}
