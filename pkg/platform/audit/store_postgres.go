package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "outpass/pkg/domain"
)

// PostgresStore persists ledger events in an append-only table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	category := LedgerEvent(event.Action).Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	query := `
		INSERT INTO ledger_events (id, category, occurred_at, pass_id, student_id,
			actor_id, action, outcome, reason, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		string(category),
		event.Timestamp,
		nullableID(uuid.UUID(event.PassID)),
		nullableID(uuid.UUID(event.StudentID)),
		event.ActorID,
		event.Action,
		event.Outcome,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append ledger event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentID id.StudentID) ([]Event, error) {
	query := `
		SELECT category, occurred_at, pass_id, student_id, actor_id, action, outcome, reason, request_id
		FROM ledger_events
		WHERE student_id = $1
		ORDER BY occurred_at
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(studentID))
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var category string
		var passID, student uuid.NullUUID
		if err := rows.Scan(&category, &e.Timestamp, &passID, &student,
			&e.ActorID, &e.Action, &e.Outcome, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		e.Category = EventCategory(category)
		if passID.Valid {
			e.PassID = id.PassID(passID.UUID)
		}
		if student.Valid {
			e.StudentID = id.StudentID(student.UUID)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullableID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}
