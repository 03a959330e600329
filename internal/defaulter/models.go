// Package defaulter tracks students flagged for late returns. A student with
// any active defaulter record is blocked from new pass requests until a
// warden clears the flag.
package defaulter

import (
	"time"

	id "outpass/pkg/domain"
)

// Record flags one late return. References the student and the pass whose
// check-in was late.
type Record struct {
	ID        id.DefaulterID `json:"id"`
	StudentID id.StudentID   `json:"student_id"`
	PassID    id.PassID      `json:"pass_id"`
	Reason    string         `json:"reason"`
	IsActive  bool           `json:"is_active"`
	ClearedBy *id.WardenID   `json:"cleared_by,omitempty"`
	ClearedAt *time.Time     `json:"cleared_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ReasonLateReturn is the reason written by the gate check-in path.
const ReasonLateReturn = "Late Return"

// New creates an active defaulter record.
func New(recordID id.DefaulterID, studentID id.StudentID, passID id.PassID, reason string, now time.Time) *Record {
	return &Record{
		ID:        recordID,
		StudentID: studentID,
		PassID:    passID,
		Reason:    reason,
		IsActive:  true,
		CreatedAt: now,
	}
}
