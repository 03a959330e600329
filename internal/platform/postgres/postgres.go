// Package postgres opens the database connection and owns the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"outpass/internal/platform/config"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema applies the schema. Statements are idempotent so this is safe
// to run on every boot.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema is the full DDL for the service.
//
// The partial unique index on passes enforces at most one CURRENTLY_OUT pass
// per student at the storage level. The conditional check-out UPDATE relies
// on it: two racing check-outs update different rows, so only the index can
// make the second one fail.
const Schema = `
CREATE TABLE IF NOT EXISTS passes (
	id                   UUID PRIMARY KEY,
	student_id           UUID NOT NULL,
	kind                 TEXT NOT NULL,
	reason               TEXT NOT NULL,
	destination          TEXT NOT NULL,
	pass_date            TIMESTAMPTZ,
	expected_out         TIMESTAMPTZ,
	expected_in          TIMESTAMPTZ,
	from_date            TIMESTAMPTZ,
	to_date              TIMESTAMPTZ,
	status               TEXT NOT NULL,
	is_guardian_approved BOOLEAN NOT NULL DEFAULT FALSE,
	approved_by          UUID,
	rejection_reason     TEXT NOT NULL DEFAULT '',
	qr_code              TEXT,
	actual_out_time      TIMESTAMPTZ,
	actual_in_time       TIMESTAMPTZ,
	is_late              BOOLEAN NOT NULL DEFAULT FALSE,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS passes_student_idx ON passes (student_id);
CREATE INDEX IF NOT EXISTS passes_status_idx ON passes (status);
CREATE UNIQUE INDEX IF NOT EXISTS passes_qr_code_idx ON passes (qr_code) WHERE qr_code IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS passes_one_out_per_student_idx ON passes (student_id) WHERE status = 'CURRENTLY_OUT';

CREATE TABLE IF NOT EXISTS guardian_tokens (
	token_hash     TEXT PRIMARY KEY,
	pass_id        UUID NOT NULL REFERENCES passes (id),
	guardian_email TEXT NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	consumed_at    TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS guardian_tokens_pass_idx ON guardian_tokens (pass_id);

CREATE TABLE IF NOT EXISTS defaulters (
	id         UUID PRIMARY KEY,
	student_id UUID NOT NULL,
	pass_id    UUID NOT NULL,
	reason     TEXT NOT NULL,
	is_active  BOOLEAN NOT NULL DEFAULT TRUE,
	cleared_by UUID,
	cleared_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS defaulters_active_student_idx ON defaulters (student_id) WHERE is_active;

CREATE TABLE IF NOT EXISTS gate_logs (
	id         UUID PRIMARY KEY,
	pass_id    UUID,
	student_id UUID,
	guard_id   UUID NOT NULL,
	scan_type  TEXT NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	comment    TEXT NOT NULL DEFAULT '',
	scanned_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS gate_logs_pass_idx ON gate_logs (pass_id);
CREATE INDEX IF NOT EXISTS gate_logs_scanned_at_idx ON gate_logs (scanned_at);

CREATE TABLE IF NOT EXISTS system_config (
	singleton                  BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
	emergency_freeze           BOOLEAN NOT NULL,
	day_pass_auto_approve      BOOLEAN NOT NULL,
	home_pass_auto_approve     BOOLEAN NOT NULL,
	day_pass_start_minute      INT NOT NULL,
	day_pass_end_minute        INT NOT NULL,
	guardian_token_ttl_seconds BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_events (
	id          UUID PRIMARY KEY,
	category    TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	pass_id     UUID,
	student_id  UUID,
	actor_id    UUID,
	action      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	reason      TEXT NOT NULL DEFAULT '',
	request_id  TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS ledger_events_student_idx ON ledger_events (student_id);
CREATE INDEX IF NOT EXISTS ledger_events_occurred_idx ON ledger_events (occurred_at);
`
