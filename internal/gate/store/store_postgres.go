package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"outpass/internal/gate/models"
	id "outpass/pkg/domain"
)

// PostgresStore persists gate logs in the gate_logs table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, log *models.GateLog) error {
	const q = `
		INSERT INTO gate_logs (id, pass_id, student_id, guard_id, scan_type, location, comment, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	var passID, studentID uuid.NullUUID
	if log.PassID != nil {
		passID = uuid.NullUUID{UUID: uuid.UUID(*log.PassID), Valid: true}
	}
	if log.StudentID != nil {
		studentID = uuid.NullUUID{UUID: uuid.UUID(*log.StudentID), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, q,
		uuid.UUID(log.ID), passID, studentID, uuid.UUID(log.GuardID),
		string(log.ScanType), log.Location, log.Comment, log.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting gate log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]*models.GateLog, error) {
	const q = `
		SELECT id, pass_id, student_id, guard_id, scan_type, location, comment, scanned_at
		FROM gate_logs
		ORDER BY scanned_at DESC
		LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent gate logs: %w", err)
	}
	return collectLogs(rows)
}

func (s *PostgresStore) ListByPass(ctx context.Context, passID id.PassID) ([]*models.GateLog, error) {
	const q = `
		SELECT id, pass_id, student_id, guard_id, scan_type, location, comment, scanned_at
		FROM gate_logs
		WHERE pass_id = $1
		ORDER BY scanned_at ASC`
	rows, err := s.db.QueryContext(ctx, q, uuid.UUID(passID))
	if err != nil {
		return nil, fmt.Errorf("listing gate logs by pass: %w", err)
	}
	return collectLogs(rows)
}

func collectLogs(rows *sql.Rows) ([]*models.GateLog, error) {
	defer rows.Close()
	var out []*models.GateLog
	for rows.Next() {
		var (
			log       models.GateLog
			logID     uuid.UUID
			passID    uuid.NullUUID
			studentID uuid.NullUUID
			guardID   uuid.UUID
			scanType  string
		)
		err := rows.Scan(&logID, &passID, &studentID, &guardID,
			&scanType, &log.Location, &log.Comment, &log.ScannedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning gate log row: %w", err)
		}
		log.ID = id.GateLogID(logID)
		log.GuardID = id.GuardID(guardID)
		log.ScanType = models.ScanType(scanType)
		if passID.Valid {
			pid := id.PassID(passID.UUID)
			log.PassID = &pid
		}
		if studentID.Valid {
			sid := id.StudentID(studentID.UUID)
			log.StudentID = &sid
		}
		out = append(out, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating gate log rows: %w", err)
	}
	return out, nil
}
