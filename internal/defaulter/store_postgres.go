package defaulter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

// PostgresStore persists defaulter records in the defaulters table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	const q = `
		INSERT INTO defaulters (id, student_id, pass_id, reason, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, q,
		uuid.UUID(record.ID), uuid.UUID(record.StudentID), uuid.UUID(record.PassID),
		record.Reason, record.IsActive, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting defaulter record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.DefaulterID) (*Record, error) {
	const q = `
		SELECT id, student_id, pass_id, reason, is_active, cleared_by, cleared_at, created_at
		FROM defaulters
		WHERE id = $1`
	record, err := scanRecord(s.db.QueryRowContext(ctx, q, uuid.UUID(recordID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("defaulter record not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying defaulter record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) HasActive(ctx context.Context, studentID id.StudentID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM defaulters WHERE student_id = $1 AND is_active = TRUE)`
	var active bool
	if err := s.db.QueryRowContext(ctx, q, uuid.UUID(studentID)).Scan(&active); err != nil {
		return false, fmt.Errorf("checking active defaulter: %w", err)
	}
	return active, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]*Record, error) {
	const q = `
		SELECT id, student_id, pass_id, reason, is_active, cleared_by, cleared_at, created_at
		FROM defaulters
		WHERE is_active = TRUE
		ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing active defaulters: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning defaulter row: %w", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating defaulter rows: %w", err)
	}
	return out, nil
}

// Clear flips is_active in a single conditional update so only one caller
// wins when two wardens clear the same record concurrently.
func (s *PostgresStore) Clear(ctx context.Context, recordID id.DefaulterID, clearedBy id.WardenID, now time.Time) (*Record, error) {
	const q = `
		UPDATE defaulters
		SET is_active = FALSE, cleared_by = $2, cleared_at = $3
		WHERE id = $1 AND is_active = TRUE
		RETURNING id, student_id, pass_id, reason, is_active, cleared_by, cleared_at, created_at`
	record, err := scanRecord(s.db.QueryRowContext(ctx, q, uuid.UUID(recordID), uuid.UUID(clearedBy), now))
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing record from one already cleared.
		if _, findErr := s.FindByID(ctx, recordID); findErr != nil {
			return nil, findErr
		}
		return nil, fmt.Errorf("defaulter record already cleared: %w", sentinel.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("clearing defaulter record: %w", err)
	}
	return record, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record    Record
		recordID  uuid.UUID
		studentID uuid.UUID
		passID    uuid.UUID
		clearedBy uuid.NullUUID
		clearedAt sql.NullTime
	)
	err := row.Scan(&recordID, &studentID, &passID, &record.Reason,
		&record.IsActive, &clearedBy, &clearedAt, &record.CreatedAt)
	if err != nil {
		return nil, err
	}
	record.ID = id.DefaulterID(recordID)
	record.StudentID = id.StudentID(studentID)
	record.PassID = id.PassID(passID)
	if clearedBy.Valid {
		wardenID := id.WardenID(clearedBy.UUID)
		record.ClearedBy = &wardenID
	}
	if clearedAt.Valid {
		record.ClearedAt = &clearedAt.Time
	}
	return &record, nil
}
