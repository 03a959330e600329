// Package audit is the movement ledger event pipeline. Domain services emit
// events for every lifecycle transition and gate scan; a worker persists them
// and an optional Kafka publisher fans them out for downstream consumers
// (hostel dashboards, compliance exports).
//
// The pass record itself is the authoritative state. Ledger events are a
// side-effect record: emission is best-effort on the request path and never
// fails the primary operation.
package audit

import (
	"time"

	id "outpass/pkg/domain"
)

// EventCategory classifies ledger events by their primary purpose. Categories
// drive retention and routing: movement events feed the gate dashboard,
// discipline events feed warden review, lifecycle events are routine activity.
type EventCategory string

const (
	// CategoryLifecycle covers pass state transitions (apply, approvals,
	// rejections, cancellations, expiry).
	CategoryLifecycle EventCategory = "lifecycle"

	// CategoryMovement covers physical gate activity (check-out, check-in,
	// denials). These are the events security reviews after an incident.
	CategoryMovement EventCategory = "movement"

	// CategoryDiscipline covers defaulter creation and clearance.
	CategoryDiscipline EventCategory = "discipline"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	PassID    id.PassID
	StudentID id.StudentID
	// ActorID is the warden/guard who performed the action; empty for
	// student self-service and guardian token actions.
	ActorID string
	Action  string
	// Outcome is "allowed"/"denied" for gate scans, empty otherwise.
	Outcome string
	Reason  string
	// RequestID is the correlation ID from the HTTP request context.
	RequestID string
}

// LedgerEvent enumerates every action the ledger records.
type LedgerEvent string

const (
	// Lifecycle events
	EventPassApplied          LedgerEvent = "pass_applied"
	EventPassGuardianApproved LedgerEvent = "pass_guardian_approved"
	EventPassGuardianRejected LedgerEvent = "pass_guardian_rejected"
	EventPassWardenApproved   LedgerEvent = "pass_warden_approved"
	EventPassWardenRejected   LedgerEvent = "pass_warden_rejected"
	EventPassCancelled        LedgerEvent = "pass_cancelled"
	EventPassExpired          LedgerEvent = "pass_expired"

	// Movement events
	EventGateCheckOut LedgerEvent = "gate_check_out"
	EventGateCheckIn  LedgerEvent = "gate_check_in"
	EventGateDenied   LedgerEvent = "gate_denied"

	// Discipline events
	EventDefaulterCreated LedgerEvent = "defaulter_created"
	EventDefaulterCleared LedgerEvent = "defaulter_cleared"
)

var eventCategories = map[LedgerEvent]EventCategory{
	EventPassApplied:          CategoryLifecycle,
	EventPassGuardianApproved: CategoryLifecycle,
	EventPassGuardianRejected: CategoryLifecycle,
	EventPassWardenApproved:   CategoryLifecycle,
	EventPassWardenRejected:   CategoryLifecycle,
	EventPassCancelled:        CategoryLifecycle,
	EventPassExpired:          CategoryLifecycle,

	EventGateCheckOut: CategoryMovement,
	EventGateCheckIn:  CategoryMovement,
	EventGateDenied:   CategoryMovement,

	EventDefaulterCreated: CategoryDiscipline,
	EventDefaulterCleared: CategoryDiscipline,
}

// Category returns the EventCategory for this ledger event.
// Unknown events default to CategoryLifecycle.
func (e LedgerEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryLifecycle
}
