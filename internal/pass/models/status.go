package models

// Status is the lifecycle state of a pass. Transitions are monotonic: a pass
// only ever moves forward along the graph below, and the terminal states
// (COMPLETED, REJECTED, CANCELLED, EXPIRED) have no exits.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusPendingGuardian Status = "PENDING_GUARDIAN"
	StatusPendingWarden   Status = "PENDING_WARDEN"
	StatusApproved        Status = "APPROVED"
	StatusCurrentlyOut    Status = "CURRENTLY_OUT"
	StatusCompleted       Status = "COMPLETED"
	StatusRejected        Status = "REJECTED"
	StatusCancelled       Status = "CANCELLED"
	StatusExpired         Status = "EXPIRED"
)

// transitions is the full lifecycle graph.
//
//	PENDING_GUARDIAN -> PENDING_WARDEN | APPROVED | REJECTED | CANCELLED | EXPIRED
//	PENDING          -> APPROVED | REJECTED | CANCELLED | EXPIRED
//	PENDING_WARDEN   -> APPROVED | REJECTED | CANCELLED | EXPIRED
//	APPROVED         -> CURRENTLY_OUT | COMPLETED (missed exit scan) | EXPIRED
//	CURRENTLY_OUT    -> COMPLETED
var transitions = map[Status][]Status{
	StatusPendingGuardian: {StatusPendingWarden, StatusApproved, StatusRejected, StatusCancelled, StatusExpired},
	StatusPending:         {StatusApproved, StatusRejected, StatusCancelled, StatusExpired},
	StatusPendingWarden:   {StatusApproved, StatusRejected, StatusCancelled, StatusExpired},
	StatusApproved:        {StatusCurrentlyOut, StatusCompleted, StatusExpired},
	StatusCurrentlyOut:    {StatusCompleted},
	StatusCompleted:       nil,
	StatusRejected:        nil,
	StatusCancelled:       nil,
	StatusExpired:         nil,
}

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether the pass can never change state again.
func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the lifecycle graph allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsPendingStage reports whether the pass still awaits an approval decision.
// Only these stages can be cancelled by the student.
func (s Status) IsPendingStage() bool {
	switch s {
	case StatusPending, StatusPendingGuardian, StatusPendingWarden:
		return true
	}
	return false
}
