package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"outpass/internal/pass/models"
	id "outpass/pkg/domain"
	"outpass/pkg/platform/sentinel"
)

// PostgresStore persists passes in the passes table.
// This store is pure I/O. Lifecycle rules live on models.Pass; every
// transition lands here as a conditional UPDATE so only one concurrent
// actor can win it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const passColumns = `id, student_id, kind, reason, destination,
	pass_date, expected_out, expected_in, from_date, to_date,
	status, is_guardian_approved, approved_by, rejection_reason,
	qr_code, actual_out_time, actual_in_time, is_late, created_at, updated_at`

const passInsertQuery = `
		INSERT INTO passes (` + passColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

func (s *PostgresStore) Create(ctx context.Context, pass *models.Pass) error {
	_, err := s.db.ExecContext(ctx, passInsertQuery, passArgs(pass)...)
	if err != nil {
		return fmt.Errorf("inserting pass: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, passID id.PassID) (*models.Pass, error) {
	const q = `SELECT ` + passColumns + ` FROM passes WHERE id = $1`
	pass, err := scanPass(s.db.QueryRowContext(ctx, q, uuid.UUID(passID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pass not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying pass: %w", err)
	}
	return pass, nil
}

func (s *PostgresStore) FindByQRCode(ctx context.Context, qrCode string) (*models.Pass, error) {
	const q = `SELECT ` + passColumns + ` FROM passes WHERE qr_code = $1`
	pass, err := scanPass(s.db.QueryRowContext(ctx, q, qrCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pass not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying pass by qr code: %w", err)
	}
	return pass, nil
}

func (s *PostgresStore) ListByStudent(ctx context.Context, studentID id.StudentID) ([]*models.Pass, error) {
	const q = `SELECT ` + passColumns + ` FROM passes WHERE student_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q, uuid.UUID(studentID))
	if err != nil {
		return nil, fmt.Errorf("listing passes by student: %w", err)
	}
	return collectPasses(rows)
}

func (s *PostgresStore) ListByStatuses(ctx context.Context, statuses ...models.Status) ([]*models.Pass, error) {
	const q = `SELECT ` + passColumns + ` FROM passes WHERE status = ANY($1) ORDER BY created_at DESC`
	wanted := make([]string, len(statuses))
	for i, status := range statuses {
		wanted[i] = string(status)
	}
	rows, err := s.db.QueryContext(ctx, q, pq.Array(wanted))
	if err != nil {
		return nil, fmt.Errorf("listing passes by status: %w", err)
	}
	return collectPasses(rows)
}

func (s *PostgresStore) HasActiveOnDate(ctx context.Context, studentID id.StudentID, kind models.Kind, date time.Time) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM passes
			WHERE student_id = $1
			  AND kind = $2
			  AND COALESCE(pass_date, from_date)::date = $3::date
			  AND status IN ('PENDING', 'APPROVED')
		)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, uuid.UUID(studentID), string(kind), date).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking pass on date: %w", err)
	}
	return exists, nil
}

const passUpdateQuery = `
		UPDATE passes
		SET status = $3, is_guardian_approved = $4, approved_by = $5, rejection_reason = $6,
		    qr_code = $7, actual_out_time = $8, actual_in_time = $9, is_late = $10, updated_at = $11
		WHERE id = $1 AND status = $2`

func (s *PostgresStore) UpdateStatus(ctx context.Context, pass *models.Pass, expected models.Status) error {
	result, err := s.db.ExecContext(ctx, passUpdateQuery, mutableArgs(pass, expected)...)
	if err != nil {
		return fmt.Errorf("updating pass status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pass status rows affected: %w", err)
	}
	if rows == 0 {
		if _, findErr := s.FindByID(ctx, pass.ID); findErr != nil {
			return findErr
		}
		return fmt.Errorf("pass is no longer %s: %w", expected, sentinel.ErrInvalidState)
	}
	return nil
}

// CheckOut persists the APPROVED to CURRENTLY_OUT transition. The NOT EXISTS
// clause holds the invariant that a student has at most one pass out; it is
// part of the same UPDATE so two simultaneous gate scans cannot both succeed.
const passCheckOutQuery = passUpdateQuery + `
		  AND NOT EXISTS (
			SELECT 1 FROM passes other
			WHERE other.student_id = passes.student_id
			  AND other.status = 'CURRENTLY_OUT'
		  )`

func (s *PostgresStore) CheckOut(ctx context.Context, pass *models.Pass) error {
	result, err := s.db.ExecContext(ctx, passCheckOutQuery, mutableArgs(pass, models.StatusApproved)...)
	if err != nil {
		// The partial unique index on (student_id) WHERE status =
		// 'CURRENTLY_OUT' is the backstop for two scans that each passed the
		// NOT EXISTS snapshot check.
		if isUniqueViolation(err) {
			return fmt.Errorf("student already has a pass checked out: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("checking out pass: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check out rows affected: %w", err)
	}
	if rows == 0 {
		const outQ = `SELECT EXISTS (SELECT 1 FROM passes WHERE student_id = $1 AND status = 'CURRENTLY_OUT')`
		var alreadyOut bool
		if err := s.db.QueryRowContext(ctx, outQ, uuid.UUID(pass.StudentID)).Scan(&alreadyOut); err != nil {
			return fmt.Errorf("checking currently out: %w", err)
		}
		if alreadyOut {
			return fmt.Errorf("student already has a pass checked out: %w", sentinel.ErrConflict)
		}
		if _, findErr := s.FindByID(ctx, pass.ID); findErr != nil {
			return findErr
		}
		return fmt.Errorf("pass is no longer APPROVED: %w", sentinel.ErrInvalidState)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func passArgs(pass *models.Pass) []any {
	args := []any{
		uuid.UUID(pass.ID), uuid.UUID(pass.StudentID), string(pass.Kind),
		pass.Reason, pass.Destination,
		nullableTime(pass.Date), nullableTime(pass.ExpectedOut), nullableTime(pass.ExpectedIn),
		nullableTime(pass.FromDate), nullableTime(pass.ToDate),
	}
	args = append(args, statusArgs(pass)...)
	return append(args, pass.CreatedAt, pass.UpdatedAt)
}

func mutableArgs(pass *models.Pass, expected models.Status) []any {
	args := []any{uuid.UUID(pass.ID), string(expected)}
	args = append(args, statusArgs(pass)...)
	return append(args, pass.UpdatedAt)
}

// statusArgs covers the state columns a transition may change, in the
// status..is_late column order. Callers append their own timestamps.
func statusArgs(pass *models.Pass) []any {
	var approvedBy uuid.NullUUID
	if pass.ApprovedBy != nil {
		approvedBy = uuid.NullUUID{UUID: uuid.UUID(*pass.ApprovedBy), Valid: true}
	}
	var qrCode sql.NullString
	if pass.QRCode != "" {
		qrCode = sql.NullString{String: pass.QRCode, Valid: true}
	}
	return []any{
		string(pass.Status), pass.IsGuardianApproved, approvedBy, pass.RejectionReason,
		qrCode, pass.ActualOutTime, pass.ActualInTime, pass.IsLate,
	}
}

func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

type passRow interface {
	Scan(dest ...any) error
}

func scanPass(row passRow) (*models.Pass, error) {
	var (
		pass          models.Pass
		passID        uuid.UUID
		studentID     uuid.UUID
		kind          string
		passDate      sql.NullTime
		expectedOut   sql.NullTime
		expectedIn    sql.NullTime
		fromDate      sql.NullTime
		toDate        sql.NullTime
		status        string
		approvedBy    uuid.NullUUID
		qrCode        sql.NullString
		actualOutTime sql.NullTime
		actualInTime  sql.NullTime
	)
	err := row.Scan(&passID, &studentID, &kind, &pass.Reason, &pass.Destination,
		&passDate, &expectedOut, &expectedIn, &fromDate, &toDate,
		&status, &pass.IsGuardianApproved, &approvedBy, &pass.RejectionReason,
		&qrCode, &actualOutTime, &actualInTime, &pass.IsLate, &pass.CreatedAt, &pass.UpdatedAt)
	if err != nil {
		return nil, err
	}
	pass.ID = id.PassID(passID)
	pass.StudentID = id.StudentID(studentID)
	pass.Kind = models.Kind(kind)
	pass.Status = models.Status(status)
	pass.Date = passDate.Time
	pass.ExpectedOut = expectedOut.Time
	pass.ExpectedIn = expectedIn.Time
	pass.FromDate = fromDate.Time
	pass.ToDate = toDate.Time
	if approvedBy.Valid {
		wardenID := id.WardenID(approvedBy.UUID)
		pass.ApprovedBy = &wardenID
	}
	if qrCode.Valid {
		pass.QRCode = qrCode.String
	}
	if actualOutTime.Valid {
		pass.ActualOutTime = &actualOutTime.Time
	}
	if actualInTime.Valid {
		pass.ActualInTime = &actualInTime.Time
	}
	return &pass, nil
}

func collectPasses(rows *sql.Rows) ([]*models.Pass, error) {
	defer rows.Close()
	var out []*models.Pass
	for rows.Next() {
		pass, err := scanPass(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pass row: %w", err)
		}
		out = append(out, pass)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pass rows: %w", err)
	}
	return out, nil
}
