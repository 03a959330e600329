package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "outpass/pkg/domain"
	dErrors "outpass/pkg/domain-errors"
)

// Kind discriminates the two pass variants. Day passes are same-day with an
// expected out/in time; home passes span multiple days and require a guardian
// stage before the warden sees them.
type Kind string

const (
	KindDay  Kind = "day"
	KindHome Kind = "home"
)

// Pass is the aggregate root for an outpass record.
//
// Invariants:
//   - Status only moves forward along the lifecycle graph (see status.go)
//   - QRCode is set exactly once, on the first transition to APPROVED, and
//     never overwritten afterwards (reissuing would invalidate printed passes)
//   - ApprovedBy is set only by a warden decision
//   - RejectionReason is non-empty iff Status is REJECTED
//   - ActualOutTime/ActualInTime are written only by gate transitions
//   - IsLate implies ActualInTime is set and is after Deadline()
type Pass struct {
	ID        id.PassID    `json:"id"`
	StudentID id.StudentID `json:"student_id"`
	Kind      Kind         `json:"kind"`

	Reason      string `json:"reason"`
	Destination string `json:"destination"`

	// Day pass window: Date anchors the day, ExpectedOut/ExpectedIn are the
	// full timestamps on that day.
	Date        time.Time `json:"date,omitzero"`
	ExpectedOut time.Time `json:"expected_out,omitzero"`
	ExpectedIn  time.Time `json:"expected_in,omitzero"`

	// Home pass window.
	FromDate time.Time `json:"from_date,omitzero"`
	ToDate   time.Time `json:"to_date,omitzero"`

	Status             Status       `json:"status"`
	IsGuardianApproved bool         `json:"is_guardian_approved"`
	ApprovedBy         *id.WardenID `json:"approved_by,omitempty"`
	RejectionReason    string       `json:"rejection_reason,omitempty"`

	QRCode        string     `json:"qr_code,omitempty"`
	ActualOutTime *time.Time `json:"actual_out_time,omitempty"`
	ActualInTime  *time.Time `json:"actual_in_time,omitempty"`
	IsLate        bool       `json:"is_late"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDayPass builds a day pass in its initial state. When autoApprove is set
// the pass skips the warden queue and is approved immediately with a QR code.
func NewDayPass(passID id.PassID, studentID id.StudentID, date, expectedOut, expectedIn time.Time, reason, destination string, autoApprove bool, now time.Time) (*Pass, error) {
	if err := validateCommon(studentID, reason, destination); err != nil {
		return nil, err
	}
	if !expectedOut.Before(expectedIn) {
		return nil, dErrors.New(dErrors.CodeValidation, "expected out time must be before expected in time")
	}
	p := &Pass{
		ID:          passID,
		StudentID:   studentID,
		Kind:        KindDay,
		Reason:      reason,
		Destination: destination,
		Date:        date,
		ExpectedOut: expectedOut,
		ExpectedIn:  expectedIn,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if autoApprove {
		p.Status = StatusApproved
		p.QRCode = NewQRCode()
	}
	return p, nil
}

// NewHomePass builds a home pass awaiting its guardian stage.
func NewHomePass(passID id.PassID, studentID id.StudentID, fromDate, toDate time.Time, reason, destination string, now time.Time) (*Pass, error) {
	if err := validateCommon(studentID, reason, destination); err != nil {
		return nil, err
	}
	if !fromDate.Before(toDate) {
		return nil, dErrors.New(dErrors.CodeValidation, "from date must be before to date")
	}
	return &Pass{
		ID:          passID,
		StudentID:   studentID,
		Kind:        KindHome,
		Reason:      reason,
		Destination: destination,
		FromDate:    fromDate,
		ToDate:      toDate,
		Status:      StatusPendingGuardian,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func validateCommon(studentID id.StudentID, reason, destination string) error {
	if studentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "student id is required")
	}
	if strings.TrimSpace(reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if strings.TrimSpace(destination) == "" {
		return dErrors.New(dErrors.CodeValidation, "destination is required")
	}
	return nil
}

// NewQRCode mints the opaque token embedded in the pass QR. It is an
// identifier, not a bearer credential: the gate endpoint authenticates the
// scanning guard and re-checks pass status server-side on every scan.
func NewQRCode() string {
	return uuid.NewString()
}

// Deadline is the instant after which a return scan counts as late:
// ExpectedIn for a day pass, ToDate for a home pass.
func (p *Pass) Deadline() time.Time {
	if p.Kind == KindDay {
		return p.ExpectedIn
	}
	return p.ToDate
}

// WindowLapsed reports whether the pass window is entirely in the past while
// the pass never left a pre-exit state. Used for lazy expiry at touch points.
func (p *Pass) WindowLapsed(now time.Time) bool {
	switch p.Status {
	case StatusPending, StatusPendingGuardian, StatusPendingWarden, StatusApproved:
		return now.After(p.Deadline())
	}
	return false
}

// ApplyExpiry marks a lapsed pass EXPIRED. Call WindowLapsed first.
func (p *Pass) ApplyExpiry(now time.Time) {
	p.Status = StatusExpired
	p.UpdatedAt = now
}

// --- Guardian stage ---

// CanGuardianDecide checks that the pass is waiting on its guardian.
func (p *Pass) CanGuardianDecide() error {
	if p.Kind != KindHome {
		return dErrors.New(dErrors.CodeInvariantViolation, "day passes have no guardian stage")
	}
	if p.Status != StatusPendingGuardian {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "pass is %s, not awaiting guardian", p.Status)
	}
	return nil
}

// ApplyGuardianApproval advances the pass past its guardian stage. With
// autoApprove the warden queue is skipped and the QR code is issued here.
// Call CanGuardianDecide first.
func (p *Pass) ApplyGuardianApproval(autoApprove bool, now time.Time) {
	p.IsGuardianApproved = true
	if autoApprove {
		p.Status = StatusApproved
		p.ensureQRCode()
	} else {
		p.Status = StatusPendingWarden
	}
	p.UpdatedAt = now
}

// ApplyGuardianRejection terminates the pass at the guardian stage.
// Call CanGuardianDecide first.
func (p *Pass) ApplyGuardianRejection(reason string, now time.Time) {
	p.Status = StatusRejected
	if reason == "" {
		reason = "rejected by guardian"
	}
	p.RejectionReason = reason
	p.UpdatedAt = now
}

// --- Warden stage ---

// CanWardenDecide checks that the pass is in a warden-actionable stage:
// PENDING for day passes, PENDING_WARDEN for home passes that cleared their
// guardian stage.
func (p *Pass) CanWardenDecide() error {
	switch p.Status {
	case StatusPending, StatusPendingWarden:
		return nil
	case StatusPendingGuardian:
		return dErrors.New(dErrors.CodeInvariantViolation, "pass is still awaiting guardian approval")
	default:
		return dErrors.Newf(dErrors.CodeInvariantViolation, "pass is %s, not awaiting warden", p.Status)
	}
}

// ApplyWardenApproval approves the pass and issues the QR code exactly once.
// Re-entering this transition on an already-approved pass must not overwrite
// an existing code. Call CanWardenDecide first.
func (p *Pass) ApplyWardenApproval(wardenID id.WardenID, now time.Time) {
	p.Status = StatusApproved
	p.ApprovedBy = &wardenID
	p.ensureQRCode()
	p.UpdatedAt = now
}

// ApplyWardenRejection terminates the pass with the warden's reason.
// Call CanWardenDecide first; the service enforces that reason is non-empty.
func (p *Pass) ApplyWardenRejection(wardenID id.WardenID, reason string, now time.Time) {
	p.Status = StatusRejected
	p.ApprovedBy = &wardenID
	p.RejectionReason = reason
	p.UpdatedAt = now
}

func (p *Pass) ensureQRCode() {
	if p.QRCode == "" {
		p.QRCode = NewQRCode()
	}
}

// --- Student cancellation ---

// CanCancel checks that the pass has not yet been approved or decided.
func (p *Pass) CanCancel() error {
	if !p.Status.IsPendingStage() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "pass is %s and can no longer be cancelled", p.Status)
	}
	return nil
}

// ApplyCancellation terminates the pass at the student's request.
// Call CanCancel first.
func (p *Pass) ApplyCancellation(now time.Time) {
	p.Status = StatusCancelled
	p.UpdatedAt = now
}

// --- Gate transitions ---

// CanCheckOut checks that the pass is APPROVED and its window has not lapsed.
func (p *Pass) CanCheckOut() error {
	switch p.Status {
	case StatusApproved:
		return nil
	case StatusCurrentlyOut:
		return dErrors.New(dErrors.CodeInvariantViolation, "student is already out on this pass")
	case StatusCompleted:
		return dErrors.New(dErrors.CodeInvariantViolation, "pass has already been used")
	default:
		return dErrors.Newf(dErrors.CodeInvariantViolation, "pass is %s and not valid for exit", p.Status)
	}
}

// ApplyCheckOut records the exit. Call CanCheckOut first; the cross-pass
// "one pass out per student" invariant is enforced by the store, not here.
func (p *Pass) ApplyCheckOut(now time.Time) {
	out := now
	p.ActualOutTime = &out
	p.Status = StatusCurrentlyOut
	p.UpdatedAt = now
}

// CheckInDisposition classifies a check-in attempt against the current state.
type CheckInDisposition int

const (
	// CheckInNormal is the usual CURRENTLY_OUT -> COMPLETED path.
	CheckInNormal CheckInDisposition = iota
	// CheckInMissedExit is the APPROVED -> COMPLETED edge case: the student
	// was never scanned out. The system favors recording the entry over
	// blocking it; the gate log carries a missed-exit comment.
	CheckInMissedExit
	// CheckInAlreadyCompleted means the pass was already checked in.
	CheckInAlreadyCompleted
	// CheckInInvalid covers every other state.
	CheckInInvalid
)

// ClassifyCheckIn returns the disposition for a check-in scan.
func (p *Pass) ClassifyCheckIn() CheckInDisposition {
	switch p.Status {
	case StatusCurrentlyOut:
		return CheckInNormal
	case StatusApproved:
		return CheckInMissedExit
	case StatusCompleted:
		return CheckInAlreadyCompleted
	default:
		return CheckInInvalid
	}
}

// ApplyCheckIn records the return and computes lateness against Deadline().
// For the missed-exit edge case ActualOutTime is backfilled to now if absent.
// Returns whether the return was late.
func (p *Pass) ApplyCheckIn(now time.Time) (late bool) {
	if p.ActualOutTime == nil {
		out := now
		p.ActualOutTime = &out
	}
	in := now
	p.ActualInTime = &in
	p.Status = StatusCompleted
	if now.After(p.Deadline()) {
		p.IsLate = true
	}
	p.UpdatedAt = now
	return p.IsLate
}
