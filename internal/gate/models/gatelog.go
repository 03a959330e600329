// Package models defines the gate scan audit record.
package models

import (
	"time"

	"github.com/google/uuid"

	id "outpass/pkg/domain"
)

// ScanType classifies a gate scan attempt.
type ScanType string

const (
	ScanCheckOut ScanType = "CHECK_OUT"
	ScanCheckIn  ScanType = "CHECK_IN"
	ScanDenied   ScanType = "DENIED"
)

// Valid reports whether the scan type is one a client may request.
// DENIED is only ever produced by the service.
func (s ScanType) Valid() bool {
	return s == ScanCheckOut || s == ScanCheckIn
}

// CommentMissedExit flags a check-in whose pass was never scanned out.
const CommentMissedExit = "Missed Exit Scan"

// GateLog is one row of the append-only scan ledger. PassID and StudentID are
// nil when a scan was denied before resolving to a pass.
type GateLog struct {
	ID        id.GateLogID  `json:"id"`
	PassID    *id.PassID    `json:"pass_id,omitempty"`
	StudentID *id.StudentID `json:"student_id,omitempty"`
	GuardID   id.GuardID    `json:"guard_id"`
	ScanType  ScanType      `json:"scan_type"`
	Location  string        `json:"location,omitempty"`
	Comment   string        `json:"comment,omitempty"`
	ScannedAt time.Time     `json:"scanned_at"`
}

// NewGateLog records a scan against a resolved pass.
func NewGateLog(passID id.PassID, studentID id.StudentID, guardID id.GuardID, scanType ScanType, location, comment string, now time.Time) *GateLog {
	return &GateLog{
		ID:        id.GateLogID(uuid.New()),
		PassID:    &passID,
		StudentID: &studentID,
		GuardID:   guardID,
		ScanType:  scanType,
		Location:  location,
		Comment:   comment,
		ScannedAt: now,
	}
}
